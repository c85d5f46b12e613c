package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/invoice-api/ledger"
	"github.com/yourusername/invoice-api/middleware"
	"github.com/yourusername/invoice-api/services"
)

const dateLayout = "2006-01-02"

// respondError maps service and ledger errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, services.ErrDuplicate),
		errors.Is(err, services.ErrInUse):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(v), nil
}

// idParams reads the named path params in order, writing a 400 on the first bad one.
func idParams(c *gin.Context, names ...string) ([]uint, bool) {
	ids := make([]uint, len(names))
	for i, name := range names {
		id, err := parseUintParam(c, name)
		if err != nil {
			badRequest(c, err)
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

// parseDate accepts "" as the zero time.
func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	t, err := parseDate(name, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseUintQuery(v string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}
