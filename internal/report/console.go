package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/yourorg/comps-api/internal/canon"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/valuation"
)

// ComparablesShown caps the comparables listed in reports.
const ComparablesShown = 5

// SubjectAddress prefers the address echoed by the provider and falls back
// to the one that was requested.
func SubjectAddress(res valuation.Result) string {
	p := res.Normalized.Property
	if p.Address.Known() {
		return strings.Join([]string{p.Address.Or(""), p.City.Or(""), p.State.Or("") + " " + p.Zip.Or("")}, ", ")
	}
	a := res.Address
	return canon.Canonicalize(a.Street, a.City, a.State, a.Zip).Display()
}

// ComparableAddress joins the address parts of a comparable.
func ComparableAddress(c comps.ComparableRecord) string {
	return fmt.Sprintf("%s, %s, %s %s", c.Address, c.City, c.State, c.Zip)
}

// Print writes the console report for one lookup.
func Print(w io.Writer, res valuation.Result) {
	sep := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 40)
	n, r := res.Normalized, res.Report
	p := n.Property

	fmt.Fprintf(w, "\n%s\n  PROPERTY VALUATION REPORT (%s)\n%s\n\n", sep, res.Endpoint, sep)

	fmt.Fprintf(w, "  Property Details\n  %s\n", thin)
	fmt.Fprintf(w, "  Address    : %s\n", SubjectAddress(res))
	fmt.Fprintf(w, "  Beds       : %s\n", Number(p.Beds))
	fmt.Fprintf(w, "  Baths      : %s\n", Number(p.Baths))
	fmt.Fprintf(w, "  Year Built : %s\n", p.YearBuilt)
	fmt.Fprintf(w, "  Size       : %s\n", Sqft(p.Sqft))
	fmt.Fprintf(w, "  Lot Size   : %s\n", Sqft(p.LotSize))
	fmt.Fprintf(w, "  Has Pool   : %s\n\n", YesNo(p.HasPool))

	v := n.Valuation
	if v.EstimatedValue.Valid || v.RangeLow.Valid || v.RangeHigh.Valid {
		fmt.Fprintf(w, "  Valuation\n  %s\n", thin)
		fmt.Fprintf(w, "  Estimated Value : %s\n", Currency(v.EstimatedValue))
		fmt.Fprintf(w, "  Range           : %s - %s\n", Currency(v.RangeLow), Currency(v.RangeHigh))
		fmt.Fprintf(w, "  Confidence      : %s\n\n", Confidence(v.ConfidenceScore))
	}

	fmt.Fprintf(w, "  Market Analysis\n  %s\n", thin)
	if r.Sold.Count == 0 && r.Active.Count == 0 {
		fmt.Fprintf(w, "  No priced comparables available\n")
	}
	if r.Sold.Count > 0 {
		fmt.Fprintf(w, "  Sold comparables     : %d\n", r.Sold.Count)
		fmt.Fprintf(w, "  Average Sold Price   : %s\n", Currency(r.Sold.AvgPrice))
		fmt.Fprintf(w, "  Minimum Sold Price   : %s\n", Currency(r.Sold.MinPrice))
		fmt.Fprintf(w, "  Maximum Sold Price   : %s\n", Currency(r.Sold.MaxPrice))
		if r.Sold.AvgSimilarPrice.Valid {
			fmt.Fprintf(w, "  Similar Properties   : %s (%s comps)\n", Currency(r.Sold.AvgSimilarPrice), r.Sold.SimilarCount)
		}
	}
	if r.Active.Count > 0 {
		fmt.Fprintf(w, "  Active listings      : %d\n", r.Active.Count)
		fmt.Fprintf(w, "  Average List Price   : %s\n", Currency(r.Active.AvgPrice))
	}
	fmt.Fprintln(w)

	if len(n.Sold) > 0 {
		fmt.Fprintf(w, "  Recent Comparable Sales\n  %s\n", thin)
		for i, c := range n.Sold {
			if i == ComparablesShown {
				break
			}
			fmt.Fprintf(w, "  %d. %s\n", i+1, ComparableAddress(c))
			fmt.Fprintf(w, "     Price: %s | Beds/Baths: %s/%s | Size: %s\n", Currency(c.Price), Number(c.Beds), Number(c.Baths), Sqft(c.Sqft))
			fmt.Fprintf(w, "     Year Built: %s | Distance: %s | Days on Market: %s\n", c.YearBuilt, Miles(c.Distance), c.DaysOnMarket)
		}
		fmt.Fprintln(w)
	}

	if r.Sold.AvgSimilarPrice.Valid {
		fmt.Fprintf(w, "  Value Insight\n  %s\n", thin)
		fmt.Fprintf(w, "  Based on comparable properties with %s beds and %s baths,\n", Number(p.Beds), Number(p.Baths))
		fmt.Fprintf(w, "  the estimated market value is around %s\n\n", Currency(r.Sold.AvgSimilarPrice))
	}
	fmt.Fprintf(w, "%s\n", sep)
}
