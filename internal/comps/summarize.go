package comps

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNilSubject is returned by Summarize when called without a subject.
var ErrNilSubject = errors.New("comps: nil subject")

// Summarize computes price statistics over the comparables that carry a
// positive price. The similar pair is filled only when the subject's beds and
// baths are both known and at least one priced comp matches them exactly.
func Summarize(comparables []ComparableRecord, subject *PropertyRecord) (MarketSummary, error) {
	if subject == nil {
		return MarketSummary{}, ErrNilSubject
	}

	var (
		s            MarketSummary
		sum, lo, hi  decimal.Decimal
		similarSum   decimal.Decimal
		similarCount int
	)
	matchSimilar := subject.Beds.Known() && subject.Baths.Known()

	for _, c := range comparables {
		p, ok := c.PositivePrice()
		if !ok {
			continue
		}
		if s.Count == 0 || p.LessThan(lo) {
			lo = p
		}
		if s.Count == 0 || p.GreaterThan(hi) {
			hi = p
		}
		sum = sum.Add(p)
		s.Count++

		if matchSimilar && c.Beds.Equal(subject.Beds) && c.Baths.Equal(subject.Baths) {
			similarSum = similarSum.Add(p)
			similarCount++
		}
	}
	if s.Count == 0 {
		return s, nil
	}

	s.AvgPrice = valid(mean(sum, s.Count))
	s.MinPrice = valid(lo)
	s.MaxPrice = valid(hi)
	if similarCount > 0 {
		s.AvgSimilarPrice = valid(mean(similarSum, similarCount))
		s.SimilarCount = Known(similarCount)
	}
	return s, nil
}

// Analyze summarizes each comparable category against the normalized subject.
func Analyze(n Normalized) Report {
	subject := n.Property
	var r Report
	r.Sold, _ = Summarize(n.Sold, &subject)
	r.Pending, _ = Summarize(n.Pending, &subject)
	r.Active, _ = Summarize(n.Active, &subject)
	return r
}

func mean(sum decimal.Decimal, n int) decimal.Decimal {
	return sum.Div(decimal.NewFromInt(int64(n)))
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
