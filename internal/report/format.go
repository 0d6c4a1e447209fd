package report

import (
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yourorg/comps-api/internal/comps"
)

func printer() *message.Printer { return message.NewPrinter(language.AmericanEnglish) }

// Currency renders "$510,000.00", or N/A when unknown.
func Currency(d decimal.NullDecimal) string {
	if !d.Valid {
		return comps.Unknown
	}
	return printer().Sprintf("$%.2f", d.Decimal.InexactFloat64())
}

// WholeCurrency renders "$510,000" for tables.
func WholeCurrency(d decimal.NullDecimal) string {
	if !d.Valid {
		return comps.Unknown
	}
	return printer().Sprintf("$%d", d.Decimal.Round(0).IntPart())
}

// Number renders a float without trailing zeros ("2.5", "3").
func Number(f comps.Field[float64]) string {
	v, ok := f.Get()
	if !ok {
		return comps.Unknown
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Sqft renders "1,850 sq ft".
func Sqft(f comps.Field[float64]) string {
	v, ok := f.Get()
	if !ok {
		return comps.Unknown
	}
	return printer().Sprintf("%d sq ft", int64(v+0.5))
}

func Miles(f comps.Field[float64]) string {
	v, ok := f.Get()
	if !ok {
		return comps.Unknown
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + " mi"
}

func YesNo(f comps.Field[bool]) string {
	v, ok := f.Get()
	switch {
	case !ok:
		return comps.Unknown
	case v:
		return "Yes"
	default:
		return "No"
	}
}

// Confidence renders a provider confidence score as "87".
func Confidence(f comps.Field[float64]) string { return Number(f) }
