package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/canon"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/store"
)

// ShapeMalformed marks a payload that was not a JSON object.
const ShapeMalformed = "malformed"

type Writer interface {
	WriteSnapshot(ctx context.Context, in store.Snapshot) (string, error)
}

// Capture is one fetched payload plus what Normalize made of it. Normalized
// is nil when the payload was malformed.
type Capture struct {
	Endpoint   acumidata.Endpoint
	Address    acumidata.Address
	Raw        []byte
	Normalized *comps.Normalized
}

// Recorder appends raw provider payloads to the audit table.
type Recorder struct {
	Store    Writer
	Provider string
	Log      *slog.Logger
}

func (r *Recorder) Enabled() bool { return r != nil && r.Store != nil }

// Record writes a snapshot and returns its id. A disabled recorder is a no-op.
func (r *Recorder) Record(ctx context.Context, c Capture) (string, error) {
	if !r.Enabled() {
		return "", nil
	}
	if len(c.Raw) == 0 {
		return "", errors.New("snapshot: empty payload")
	}
	key := canon.Canonicalize(c.Address.Street, c.Address.City, c.Address.State, c.Address.Zip).Key

	in := store.Snapshot{
		Provider:    r.provider(),
		Endpoint:    c.Endpoint.Path(),
		PropertyKey: key,
		PayloadJSON: jsonPayload(c.Raw),
		Shape:       ShapeMalformed,
		RequestedBy: RequesterFrom(ctx),
	}
	if n := c.Normalized; n != nil {
		in.Shape = string(n.Shape)
		in.SoldCount, in.PendingCount, in.ActiveCount = len(n.Sold), len(n.Pending), len(n.Active)
	}

	id, err := r.Store.WriteSnapshot(ctx, in)
	if err != nil {
		return "", err
	}
	if r.Log != nil {
		r.Log.Debug("snapshot stored", "id", id, "endpoint", in.Endpoint, "property_key", key, "shape", in.Shape)
	}
	return id, nil
}

func (r *Recorder) provider() string {
	if r.Provider == "" {
		return "acumidata"
	}
	return r.Provider
}

// jsonPayload keeps the column valid JSONB: a body that is not JSON is
// stored as a JSON string.
func jsonPayload(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(string(raw))
	return bytes.TrimRight(buf.Bytes(), "\n")
}

type requesterKey struct{}

// WithRequester tags ctx with the dashboard user behind a lookup.
func WithRequester(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, requesterKey{}, username)
}

func RequesterFrom(ctx context.Context) string {
	s, _ := ctx.Value(requesterKey{}).(string)
	return s
}
