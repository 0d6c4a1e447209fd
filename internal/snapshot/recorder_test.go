package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/store"
)

type fakeWriter struct {
	got []store.Snapshot
	err error
}

func (f *fakeWriter) WriteSnapshot(_ context.Context, in store.Snapshot) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.got = append(f.got, in)
	return "snap-1", nil
}

var addr = acumidata.Address{Street: "531 NE Beck Rd", City: "Belfair", State: "WA", Zip: "98528"}

func TestRecordNormalizedPayload(t *testing.T) {
	raw := []byte(`{"mlsData":{},"searchLists":{"Sold":[{"price":1},{"price":2}],"open":[{"price":3}]}}`)
	n, err := comps.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	w := &fakeWriter{}
	r := &Recorder{Store: w}

	ctx := WithRequester(context.Background(), "alice")
	id, err := r.Record(ctx, Capture{Endpoint: acumidata.Advantage, Address: addr, Raw: raw, Normalized: &n})
	if err != nil || id != "snap-1" {
		t.Fatalf("Record: id=%q err=%v", id, err)
	}
	s := w.got[0]
	if s.Provider != "acumidata" || s.Endpoint != "/api/Comps/advantage" {
		t.Errorf("provider/endpoint: %q %q", s.Provider, s.Endpoint)
	}
	if s.PropertyKey != "531 ne beck rd|belfair|wa|98528" {
		t.Errorf("PropertyKey: %q", s.PropertyKey)
	}
	if s.Shape != "mls" || s.SoldCount != 2 || s.PendingCount != 0 || s.ActiveCount != 1 {
		t.Errorf("shape/counts: %+v", s)
	}
	if s.RequestedBy != "alice" {
		t.Errorf("RequestedBy: %q", s.RequestedBy)
	}
}

func TestRecordMalformedPayloadIsWrapped(t *testing.T) {
	w := &fakeWriter{}
	r := &Recorder{Store: w, Provider: "acumidata-uat"}
	if _, err := r.Record(context.Background(), Capture{Endpoint: acumidata.QVM, Address: addr, Raw: []byte(`<html>oops</html>`)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s := w.got[0]
	if s.Shape != ShapeMalformed {
		t.Errorf("Shape: got %q", s.Shape)
	}
	var body string
	if err := json.Unmarshal(s.PayloadJSON, &body); err != nil || body != "<html>oops</html>" {
		t.Errorf("payload should be a JSON string, got %s (%v)", s.PayloadJSON, err)
	}
	if string(s.PayloadJSON) != `"<html>oops</html>"` {
		t.Errorf("payload should keep markup unescaped, got %s", s.PayloadJSON)
	}
	if s.Provider != "acumidata-uat" {
		t.Errorf("Provider: %q", s.Provider)
	}
}

func TestRecordDisabledAndErrors(t *testing.T) {
	var r *Recorder
	if id, err := r.Record(context.Background(), Capture{Raw: []byte(`{}`)}); id != "" || err != nil {
		t.Errorf("nil recorder: id=%q err=%v", id, err)
	}

	boom := errors.New("db down")
	r = &Recorder{Store: &fakeWriter{err: boom}}
	if _, err := r.Record(context.Background(), Capture{Raw: []byte(`{}`)}); !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
	if _, err := r.Record(context.Background(), Capture{}); err == nil {
		t.Errorf("empty payload should fail")
	}
}
