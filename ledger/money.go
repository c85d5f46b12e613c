package ledger

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PercentOf returns round2(amount * pct / 100).
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// LineTotal is unitPrice*quantity less the rounded line discount.
func LineTotal(unitPrice decimal.Decimal, quantity int, discountPct decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if discountPct.IsPositive() {
		gross = gross.Sub(PercentOf(gross, discountPct))
	}
	return Round2(gross)
}

// LineDiscount is the amount taken off a line by its discount percentage.
func LineDiscount(unitPrice decimal.Decimal, quantity int, discountPct decimal.Decimal) decimal.Decimal {
	if !discountPct.IsPositive() {
		return decimal.Zero
	}
	return PercentOf(unitPrice.Mul(decimal.NewFromInt(int64(quantity))), discountPct)
}

func inPercentRange(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// atMostTwoPlaces reports whether d has no more than two significant decimal places.
func atMostTwoPlaces(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
