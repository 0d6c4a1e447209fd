package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/valuation"
)

type Looker interface {
	Lookup(ctx context.Context, ep acumidata.Endpoint, addr acumidata.Address) (valuation.Result, error)
}

// Outcome is the enrichment of one row.
type Outcome struct {
	EstimatedValue decimal.NullDecimal
	RangeLow       decimal.NullDecimal
	RangeHigh      decimal.NullDecimal
	Confidence     string
	CompCount      int
	AvgCompPrice   decimal.NullDecimal
	Err            string
}

func (o Outcome) cells() []string {
	comps := ""
	if o.Err == "" {
		comps = strconv.Itoa(o.CompCount)
	}
	return []string{
		plain(o.EstimatedValue), plain(o.RangeLow), plain(o.RangeHigh), o.Confidence,
		comps, plain(o.AvgCompPrice), o.Err,
	}
}

// plain renders a decimal to cents without grouping, empty when unknown.
func plain(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.Round(2).String()
}

type Stats struct {
	Rows      int
	Succeeded int
	Failed    int
}

// Job enriches an address sheet one row at a time.
type Job struct {
	Service        Looker
	Endpoint       acumidata.Endpoint
	RequestTimeout time.Duration
	Log            *slog.Logger
	// Progress, when set, is called after every row.
	Progress func(done, total int)
}

func (j *Job) validate() error {
	if j == nil {
		return errors.New("nil batch job")
	}
	if j.Service == nil {
		return errors.New("batch job missing lookup service")
	}
	if j.Endpoint == "" {
		j.Endpoint = acumidata.Estimate
	}
	if j.RequestTimeout <= 0 {
		j.RequestTimeout = 30 * time.Second
	}
	if j.Log == nil {
		j.Log = slog.Default()
	}
	return nil
}

// Run looks up every row in order. A failing row records its error and the
// loop moves on; cancelling ctx stops the loop and returns the outcomes so far.
func (j *Job) Run(ctx context.Context, t *Table) ([]Outcome, Stats, error) {
	if err := j.validate(); err != nil {
		return nil, Stats{}, err
	}
	stats := Stats{Rows: len(t.Rows)}
	out := make([]Outcome, 0, len(t.Rows))
	for i, row := range t.Rows {
		if ctx.Err() != nil {
			j.Log.Warn("batch stopped", "done", i, "rows", len(t.Rows), "err", ctx.Err())
			return out, stats, ctx.Err()
		}
		addr := acumidata.Address{
			Street: t.Get(row, "address"),
			City:   t.Get(row, "city"),
			State:  t.Get(row, "state"),
			Zip:    t.Get(row, "zip"),
		}

		reqCtx, cancel := context.WithTimeout(ctx, j.RequestTimeout)
		res, err := j.Service.Lookup(reqCtx, j.Endpoint, addr)
		cancel()

		o := outcomeOf(res, err)
		if err != nil {
			if ctx.Err() != nil {
				return out, stats, ctx.Err()
			}
			stats.Failed++
			j.Log.Warn("batch row failed", "row", i+1, "address", addr.String(), "err", err)
		} else {
			stats.Succeeded++
		}
		out = append(out, o)
		if j.Progress != nil {
			j.Progress(i+1, len(t.Rows))
		}
	}
	j.Log.Info("batch done", "rows", stats.Rows, "succeeded", stats.Succeeded, "failed", stats.Failed)
	return out, stats, nil
}

// Enrich reads a sheet from r, runs it and writes the enriched sheet to w.
func (j *Job) Enrich(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	t, err := ReadCSV(r)
	if err != nil {
		return Stats{}, err
	}
	outcomes, stats, runErr := j.Run(ctx, t)
	if err := WriteCSV(w, t, outcomes); err != nil {
		return stats, errors.Join(runErr, err)
	}
	return stats, runErr
}

func outcomeOf(res valuation.Result, err error) Outcome {
	if err != nil {
		return Outcome{Err: err.Error()}
	}
	v := res.Normalized.Valuation
	o := Outcome{
		EstimatedValue: v.EstimatedValue,
		RangeLow:       v.RangeLow,
		RangeHigh:      v.RangeHigh,
		CompCount:      res.Normalized.CompCount(),
		AvgCompPrice:   res.Report.Sold.AvgPrice,
	}
	if c, ok := v.ConfidenceScore.Get(); ok {
		o.Confidence = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return o
}
