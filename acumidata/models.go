package acumidata

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint is a valuation product exposed by the API.
type Endpoint string

const (
	Advantage Endpoint = "advantage" // comps + MLS data
	Estimate  Endpoint = "estimate"
	QVM       Endpoint = "qvm"
)

var endpointPaths = map[Endpoint]string{
	Advantage: "/api/Comps/advantage",
	Estimate:  "/api/Valuation/estimate",
	QVM:       "/api/Valuation/qvmsimple",
}

// Endpoints lists the supported endpoint names in display order.
func Endpoints() []Endpoint { return []Endpoint{Advantage, Estimate, QVM} }

// ParseEndpoint maps a user supplied name to an Endpoint. An empty name
// selects Advantage.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Advantage, nil
	}
	if s == "qvmsimple" {
		return QVM, nil
	}
	e := Endpoint(s)
	if _, ok := endpointPaths[e]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, s)
	}
	return e, nil
}

// Path is the URL path of the endpoint, empty for unknown endpoints.
func (e Endpoint) Path() string { return endpointPaths[e] }

// Address identifies the subject property of a lookup.
type Address struct {
	Street string `json:"streetAddress"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Trimmed returns a copy with surrounding whitespace removed from every part.
func (a Address) Trimmed() Address {
	return Address{
		Street: strings.TrimSpace(a.Street),
		City:   strings.TrimSpace(a.City),
		State:  strings.TrimSpace(a.State),
		Zip:    strings.TrimSpace(a.Zip),
	}
}

// Missing names the empty parts of the address.
func (a Address) Missing() []string {
	var out []string
	if strings.TrimSpace(a.Street) == "" {
		out = append(out, "streetAddress")
	}
	if strings.TrimSpace(a.City) == "" {
		out = append(out, "city")
	}
	if strings.TrimSpace(a.State) == "" {
		out = append(out, "state")
	}
	if strings.TrimSpace(a.Zip) == "" {
		out = append(out, "zip")
	}
	return out
}

func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.Zip)
}

func (a Address) query() url.Values {
	q := url.Values{}
	q.Set("streetAddress", a.Street)
	q.Set("city", a.City)
	q.Set("state", a.State)
	q.Set("zip", a.Zip)
	return q
}
