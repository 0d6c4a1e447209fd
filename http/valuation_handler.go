package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/auth"
	"github.com/yourorg/comps-api/internal/batch"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/logx"
	"github.com/yourorg/comps-api/internal/valuation"
)

const valuationRequestSchema = `{
  "type": "object",
  "required": ["address", "city", "state", "zip"],
  "additionalProperties": false,
  "properties": {
    "address":  {"type": "string", "minLength": 1, "maxLength": 200},
    "city":     {"type": "string", "minLength": 1, "maxLength": 100},
    "state":    {"type": "string", "minLength": 2, "maxLength": 40},
    "zip":      {"type": "string", "pattern": "^[0-9]{5}(-?[0-9]{4})?$"},
    "endpoint": {"type": "string", "enum": ["", "advantage", "estimate", "qvm", "qvmsimple"]}
  }
}`

var valuationSchema = jsonschema.MustCompileString("valuation_request.json", valuationRequestSchema)

const maxRequestBody = 64 << 10

type ValuationDeps struct {
	Lookup batch.Looker
	// Auth, when set, requires a dashboard session.
	Auth           *auth.Service
	AllowedOrigins []string
}

type ValuationRequest struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Endpoint string `json:"endpoint,omitempty"`
}

type comparableLists struct {
	Sold    []comps.ComparableRecord `json:"sold"`
	Pending []comps.ComparableRecord `json:"pending"`
	Active  []comps.ComparableRecord `json:"active"`
}

type ValuationResponse struct {
	OK          bool                    `json:"ok"`
	Endpoint    acumidata.Endpoint      `json:"endpoint"`
	Address     acumidata.Address       `json:"address"`
	Shape       comps.Shape             `json:"shape"`
	Count       int                     `json:"count"`
	NoData      bool                    `json:"no_data"`
	Property    comps.PropertyRecord    `json:"property"`
	Valuation   comps.ValuationEstimate `json:"valuation"`
	Summary     comps.Report            `json:"summary"`
	Comparables comparableLists         `json:"comparables"`
	SnapshotID  string                  `json:"snapshot_id,omitempty"`
}

func newValuationResponse(res valuation.Result) ValuationResponse {
	n := res.Normalized
	return ValuationResponse{
		OK:          true,
		Endpoint:    res.Endpoint,
		Address:     res.Address,
		Shape:       n.Shape,
		Count:       n.CompCount(),
		NoData:      res.NoData(),
		Property:    n.Property,
		Valuation:   n.Valuation,
		Summary:     res.Report,
		Comparables: comparableLists{Sold: n.Sold, Pending: n.Pending, Active: n.Active},
		SnapshotID:  res.SnapshotID,
	}
}

func RegisterValuation(r chi.Router, d ValuationDeps) {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// Credentials only go to an explicit origin list.
	credentials := !slices.Contains(origins, "*")
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: credentials,
			MaxAge:           300,
		}))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if d.Auth != nil {
			r.Use(d.Auth.Require(func(w http.ResponseWriter, req *http.Request) {
				writeError(w, req, http.StatusUnauthorized, "unauthorized", "sign in to use the valuation API")
			}))
		}

		r.Post("/valuation", func(w http.ResponseWriter, req *http.Request) {
			body, err := decodeValuationRequest(req.Body)
			if err != nil {
				writeError(w, req, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			valuate(w, req, d, body)
		})
		r.Get("/valuation", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			valuate(w, req, d, ValuationRequest{
				Address:  q.Get("address"),
				City:     q.Get("city"),
				State:    q.Get("state"),
				Zip:      q.Get("zip"),
				Endpoint: q.Get("endpoint"),
			})
		})
	})
}

// decodeValuationRequest checks the body against the request schema before
// decoding it.
func decodeValuationRequest(r io.Reader) (ValuationRequest, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxRequestBody))
	if err != nil {
		return ValuationRequest{}, fmt.Errorf("read body: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ValuationRequest{}, fmt.Errorf("invalid json: %w", err)
	}
	if err := valuationSchema.Validate(v); err != nil {
		return ValuationRequest{}, fmt.Errorf("schema: %w", err)
	}
	var body ValuationRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return ValuationRequest{}, fmt.Errorf("invalid json: %w", err)
	}
	return body, nil
}

func valuate(w http.ResponseWriter, req *http.Request, d ValuationDeps, body ValuationRequest) {
	ep, err := acumidata.ParseEndpoint(body.Endpoint)
	if err != nil {
		writeError(w, req, http.StatusBadRequest, "unknown_endpoint", err.Error())
		return
	}
	addr := acumidata.Address{Street: body.Address, City: body.City, State: body.State, Zip: body.Zip}
	res, err := d.Lookup.Lookup(req.Context(), ep, addr)
	if err != nil {
		status, code := lookupStatus(err)
		if status >= http.StatusInternalServerError {
			logx.FromContext(req.Context()).Warn("valuation lookup failed",
				slog.String("endpoint", string(ep)), slog.String("address", addr.String()), slog.Any("err", err))
		}
		writeError(w, req, status, code, err.Error())
		return
	}
	render.JSON(w, req, newValuationResponse(res))
}
