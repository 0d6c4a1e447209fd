package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/valuation"
)

func writeError(w http.ResponseWriter, req *http.Request, status int, code, detail string) {
	render.Status(req, status)
	render.JSON(w, req, map[string]any{"error": code, "detail": detail})
}

// lookupStatus maps a lookup failure to an HTTP status and error code.
func lookupStatus(err error) (int, string) {
	var pe *valuation.ProviderError
	switch {
	case errors.Is(err, valuation.ErrAddressRequired):
		return http.StatusBadRequest, "address_required"
	case errors.Is(err, acumidata.ErrUnknownEndpoint):
		return http.StatusBadRequest, "unknown_endpoint"
	case errors.Is(err, comps.ErrMalformedPayload):
		return http.StatusBadGateway, "malformed_payload"
	case errors.As(err, &pe):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}
