package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/snapshot"
)

var ErrAddressRequired = errors.New("valuation: street address, city, state and zip are required")

// ProviderError is an error envelope returned by the API in place of data.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string { return "acumidata: " + e.Message }

type Fetcher interface {
	Fetch(ctx context.Context, ep acumidata.Endpoint, addr acumidata.Address) ([]byte, error)
}

type Recorder interface {
	Record(ctx context.Context, c snapshot.Capture) (string, error)
}

// Result is everything a presentation layer needs for one lookup.
type Result struct {
	Endpoint   acumidata.Endpoint
	Address    acumidata.Address
	Raw        json.RawMessage
	Normalized comps.Normalized
	Report     comps.Report
	SnapshotID string
}

// NoData reports a successful call that carried nothing to show.
func (r Result) NoData() bool {
	v := r.Normalized.Valuation
	return r.Normalized.CompCount() == 0 && !v.EstimatedValue.Valid && !r.Normalized.Property.Beds.Known()
}

type Service struct {
	Client   Fetcher
	Recorder Recorder // optional
	Limits   comps.Limits
	Log      *slog.Logger
}

// Lookup fetches one address, records the raw payload, normalizes it and
// summarizes every comparable category. On a malformed payload or a provider
// error envelope the returned Result still carries Raw.
func (s *Service) Lookup(ctx context.Context, ep acumidata.Endpoint, addr acumidata.Address) (Result, error) {
	addr = addr.Trimmed()
	res := Result{Endpoint: ep, Address: addr}
	if missing := addr.Missing(); len(missing) > 0 {
		return res, fmt.Errorf("%w: missing %s", ErrAddressRequired, strings.Join(missing, ", "))
	}

	raw, err := s.Client.Fetch(ctx, ep, addr)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", ep, err)
	}
	res.Raw = raw

	n, nerr := comps.NormalizeWithLimits(raw, s.Limits)
	capture := snapshot.Capture{Endpoint: ep, Address: addr, Raw: raw}
	if nerr == nil {
		capture.Normalized = &n
	}
	res.SnapshotID = s.record(ctx, capture)

	if nerr != nil {
		s.logger().Warn("malformed payload", "endpoint", string(ep), "address", addr.String(), "err", nerr)
		return res, nerr
	}
	res.Normalized = n
	res.Report = comps.Analyze(n)

	if n.EnvelopeError != "" {
		return res, &ProviderError{Message: n.EnvelopeError}
	}
	s.logger().Info("lookup done",
		"endpoint", string(ep),
		"shape", string(n.Shape),
		"sold", len(n.Sold), "pending", len(n.Pending), "active", len(n.Active),
	)
	return res, nil
}

// record is best effort: a failed audit write never fails the lookup.
func (s *Service) record(ctx context.Context, c snapshot.Capture) string {
	if s.Recorder == nil {
		return ""
	}
	id, err := s.Recorder.Record(ctx, c)
	if err != nil {
		s.logger().Error("snapshot write failed", "endpoint", string(c.Endpoint), "err", err)
		return ""
	}
	return id
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
