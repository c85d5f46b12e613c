package utils

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

const DefaultPage = 1

type PageOptions struct {
	DefaultPerPage int
	MaxPerPage     int
}

var (
	DefaultPageOpts = PageOptions{DefaultPerPage: 20, MaxPerPage: 100}
	ReportPageOpts  = PageOptions{DefaultPerPage: 100, MaxPerPage: 1000}
)

// Params is a parsed page request. SortBy is a public key, never a column name;
// map it through OrderClause before it reaches SQL.
type Params struct {
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string // asc|desc
}

// ParsePagination reads page, per_page (or limit), sort_by and order from the query.
func ParsePagination(r *http.Request, defaultSortBy, defaultSortOrder string, opt PageOptions) Params {
	q := r.URL.Query()

	page := atoiDefault(q.Get("page"), DefaultPage)
	if page < 1 {
		page = DefaultPage
	}

	per := atoiDefault(strings.TrimSpace(firstNonEmpty(q.Get("per_page"), q.Get("limit"))), opt.DefaultPerPage)
	if per < 1 {
		per = opt.DefaultPerPage
	}
	if per > opt.MaxPerPage {
		per = opt.MaxPerPage
	}

	sortBy := strings.TrimSpace(q.Get("sort_by"))
	if sortBy == "" {
		sortBy = defaultSortBy
	}
	order := strings.ToLower(strings.TrimSpace(firstNonEmpty(q.Get("order"), q.Get("sort"))))
	if order != "asc" && order != "desc" {
		order = strings.ToLower(defaultSortOrder)
		if order != "asc" {
			order = "desc"
		}
	}

	return Params{Page: page, PerPage: per, SortBy: sortBy, SortOrder: order}
}

func (p Params) Limit() int { return p.PerPage }

func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

// OrderClause maps SortBy through the whitelist and returns "column DIR".
// Unknown keys fall back to defaultKey.
func (p Params) OrderClause(allowed map[string]string, defaultKey string) string {
	col, ok := allowed[p.SortBy]
	if !ok {
		col = allowed[defaultKey]
	}
	dir := "DESC"
	if p.SortOrder == "asc" {
		dir = "ASC"
	}
	return col + " " + dir
}

// Page is the JSON envelope of a paginated list.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPage[T any](data []T, total int64, p Params) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if total > 0 && p.PerPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	return Page[T]{
		Data:       data,
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
