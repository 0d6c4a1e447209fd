package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/auth"
	"github.com/yourorg/comps-api/internal/logx"
	"github.com/yourorg/comps-api/internal/redisx"
	"github.com/yourorg/comps-api/internal/store"
	"github.com/yourorg/comps-api/internal/valuation"
)

const soldPayload = `{"mlsData":{"address":"531 NE Beck Rd","city":"Belfair","state":"WA","zip":"98528","beds":3,"baths":2},
"searchLists":{"Sold":[
 {"address":"10 Elm St","price":500000,"beds":3,"baths":2},
 {"address":"12 Elm St","price":"$520,000","beds":3,"baths":2},
 {"address":"14 Elm St","price":"N/A","beds":4,"baths":3}]}}`

type fakeFetcher struct {
	body string
	err  error
}

func (f fakeFetcher) Fetch(ctx context.Context, ep acumidata.Endpoint, addr acumidata.Address) ([]byte, error) {
	return []byte(f.body), f.err
}

func lookupService(body string, err error) *valuation.Service {
	return &valuation.Service{Client: fakeFetcher{body: body, err: err}, Log: logx.Discard()}
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]store.User
}

func (m *memUsers) CreateUser(_ context.Context, username, email, hash string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return store.User{}, store.ErrUserExists
	}
	u := store.User{ID: username, Username: username, Email: email, PasswordHash: hash}
	m.users[username] = u
	return u, nil
}

func (m *memUsers) UserByUsername(_ context.Context, username string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return store.User{}, store.ErrUserNotFound
	}
	return u, nil
}

type memSessions struct {
	mu   sync.Mutex
	vals map[string]string
}

func (m *memSessions) SetNX(_ context.Context, key, val string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = val
	return true, nil
}

func (m *memSessions) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return "", redisx.ErrMiss
	}
	return v, nil
}

func (m *memSessions) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

func (m *memSessions) Touch(_ context.Context, key string, _ time.Duration) (bool, error) {
	return true, nil
}

func authService() *auth.Service {
	return &auth.Service{
		Users:    &memUsers{users: map[string]store.User{}},
		Sessions: &memSessions{vals: map[string]string{}},
		TTL:      time.Hour,
		Log:      logx.Discard(),
		Cost:     bcrypt.MinCost,
	}
}

func apiRouter(svc *valuation.Service, a *auth.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(logx.Discard()))
	RegisterValuation(r, ValuationDeps{Lookup: svc, Auth: a})
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestValuationPost(t *testing.T) {
	h := apiRouter(lookupService(soldPayload, nil), nil)
	body := `{"address":"531 NE Beck Rd","city":"Belfair","state":"WA","zip":"98528","endpoint":"advantage"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/valuation", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Errorf("missing request id header")
	}
	out := decodeBody(t, rec)
	if out["shape"] != "mls" || out["count"] != float64(3) || out["no_data"] != false {
		t.Errorf("unexpected envelope: %v", out)
	}
	sold := out["summary"].(map[string]any)["sold"].(map[string]any)
	if sold["count"] != float64(2) || sold["avg_price"] != "510000" || sold["similar_count"] != float64(2) {
		t.Errorf("sold summary: %v", sold)
	}
	comps := out["comparables"].(map[string]any)
	if len(comps["sold"].([]any)) != 3 || len(comps["active"].([]any)) != 0 {
		t.Errorf("comparables: %v", comps)
	}
}

func TestValuationPostSchema(t *testing.T) {
	h := apiRouter(lookupService(soldPayload, nil), nil)
	for _, body := range []string{
		`not json`,
		`{"address":"1 Main","city":"Belfair","state":"WA"}`,
		`{"address":"1 Main","city":"Belfair","state":"WA","zip":"ABCDE"}`,
		`{"address":"1 Main","city":"Belfair","state":"WA","zip":"98528","endpoint":"avm"}`,
		`{"address":"1 Main","city":"Belfair","state":"WA","zip":"98528","extra":1}`,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/valuation", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", body, rec.Code)
			continue
		}
		if got := decodeBody(t, rec)["error"]; got != "invalid_request" {
			t.Errorf("%s: error code %v", body, got)
		}
	}
}

func TestValuationGetErrors(t *testing.T) {
	full := "?address=1+Main&city=Belfair&state=WA&zip=98528"
	cases := []struct {
		name   string
		svc    *valuation.Service
		query  string
		status int
		code   string
	}{
		{"missing parts", lookupService(soldPayload, nil), "?address=1+Main", http.StatusBadRequest, "address_required"},
		{"bad endpoint", lookupService(soldPayload, nil), full + "&endpoint=avm", http.StatusBadRequest, "unknown_endpoint"},
		{"transport", lookupService("", errors.New("dial tcp: refused")), full, http.StatusBadGateway, "upstream_error"},
		{"status", lookupService("", &acumidata.StatusError{Code: 500, Body: "boom"}), full, http.StatusBadGateway, "upstream_error"},
		{"malformed", lookupService(`[1,2]`, nil), full, http.StatusBadGateway, "malformed_payload"},
		{"envelope", lookupService(`{"error":"address not found"}`, nil), full, http.StatusBadGateway, "upstream_error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		apiRouter(tc.svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/valuation"+tc.query, nil))
		if rec.Code != tc.status {
			t.Errorf("%s: status %d, want %d", tc.name, rec.Code, tc.status)
			continue
		}
		if got := decodeBody(t, rec)["error"]; got != tc.code {
			t.Errorf("%s: code %v, want %s", tc.name, got, tc.code)
		}
	}
}

func TestValuationGetNoData(t *testing.T) {
	rec := httptest.NewRecorder()
	apiRouter(lookupService(`{"status":"ok"}`, nil), nil).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/valuation?address=1+Main&city=Belfair&state=WA&zip=98528", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	out := decodeBody(t, rec)
	if out["count"] != float64(0) || out["no_data"] != true || out["shape"] != "unrecognized" {
		t.Errorf("unexpected: %v", out)
	}
}

func TestValuationRequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	apiRouter(lookupService(soldPayload, nil), authService()).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/valuation?address=1+Main&city=Belfair&state=WA&zip=98528", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
}

func TestValuationCORSCredentials(t *testing.T) {
	cases := []struct {
		origins []string
		want    string
	}{
		{nil, ""},
		{[]string{"*"}, ""},
		{[]string{"https://app.example"}, "true"},
	}
	for _, tc := range cases {
		r := chi.NewRouter()
		RegisterValuation(r, ValuationDeps{Lookup: lookupService(soldPayload, nil), AllowedOrigins: tc.origins})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/valuation?address=1+Main&city=Belfair&state=WA&zip=98528", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tc.want {
			t.Errorf("origins %v: Allow-Credentials %q, want %q", tc.origins, got, tc.want)
		}
	}
}

func dashboard(svc *valuation.Service) (http.Handler, *auth.Service) {
	a := authService()
	r := chi.NewRouter()
	r.Use(RequestLogger(logx.Discard()))
	RegisterDashboard(r, DashboardDeps{Auth: a, Lookup: svc, SessionTTL: time.Hour, BatchTimeout: time.Second})
	return r, a
}

func postForm(h http.Handler, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signIn(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec := postForm(h, "/signup", url.Values{"username": {"ann"}, "email": {"ann@example.com"}, "password": {"secret1"}, "confirm": {"secret1"}}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	rec = postForm(h, "/login", url.Values{"username": {"ann"}, "password": {"secret1"}}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("login set no session cookie")
	return nil
}

func TestDashboardRequiresLogin(t *testing.T) {
	h, _ := dashboard(lookupService(soldPayload, nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("got %d %q, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestDashboardAuthForms(t *testing.T) {
	h, _ := dashboard(lookupService(soldPayload, nil))
	rec := postForm(h, "/signup", url.Values{"username": {"ann"}, "email": {"a@x"}, "password": {"abc"}, "confirm": {"abc"}}, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Password must be at least 6 characters") {
		t.Errorf("short password: %d %s", rec.Code, rec.Body.String())
	}
	rec = postForm(h, "/login", url.Values{"username": {"nobody"}, "password": {"secret1"}}, nil)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Errorf("bad login: %d", rec.Code)
	}

	cookie := signIn(t, h)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="531 NE Beck Rd"`) {
		t.Errorf("index: %d %s", rec.Code, rec.Body.String())
	}

	rec = postForm(h, "/logout", nil, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("logout: %d", rec.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("session should be gone after logout, got %d", rec.Code)
	}
}

func TestDashboardLookup(t *testing.T) {
	h, _ := dashboard(lookupService(soldPayload, nil))
	cookie := signIn(t, h)
	rec := postForm(h, "/lookup", url.Values{"address": {"531 NE Beck Rd"}, "city": {"Belfair"}, "state": {"WA"}, "zip": {"98528"}, "endpoint": {"advantage"}}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: %d %s", rec.Code, rec.Body.String())
	}
	out := rec.Body.String()
	for _, want := range []string{"531 NE Beck Rd, Belfair, WA 98528", "$510,000.00", "10 Elm St", "Raw provider response"} {
		if !strings.Contains(out, want) {
			t.Errorf("result page missing %q", want)
		}
	}

	rec = postForm(h, "/lookup", url.Values{"address": {""}, "endpoint": {"advantage"}}, cookie)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Please enter street address") {
		t.Errorf("missing address: %d", rec.Code)
	}
}

func TestDashboardLookupEnvelopeError(t *testing.T) {
	h, _ := dashboard(lookupService(`{"error":"address not found"}`, nil))
	cookie := signIn(t, h)
	rec := postForm(h, "/lookup", url.Values{"address": {"1 Main"}, "city": {"Belfair"}, "state": {"WA"}, "zip": {"98528"}}, cookie)
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "address not found") {
		t.Errorf("envelope error: %d %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardBatch(t *testing.T) {
	h, _ := dashboard(lookupService(`{"Details":{"PropertyValuation":{"EstimatedValue":450000,"ConfidenceScore":90}}}`, nil))
	cookie := signIn(t, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("endpoint", "estimate")
	fw, _ := mw.CreateFormFile("file", "props.csv")
	_, _ = fw.Write([]byte("Address,City,State,Zip\n1 Main St,Belfair,WA,98528\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("batch: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "enriched_properties.csv") {
		t.Errorf("missing attachment header")
	}
	recs, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil || len(recs) != 2 {
		t.Fatalf("csv: %v %v", recs, err)
	}
	if recs[1][4] != "450000" || recs[1][7] != "90" {
		t.Errorf("enriched row: %v", recs[1])
	}
}

func TestDashboardBatchMissingColumns(t *testing.T) {
	h, _ := dashboard(lookupService(soldPayload, nil))
	cookie := signIn(t, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "props.csv")
	_, _ = fw.Write([]byte("street,town\n1 Main,Belfair\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "CSV must have address, city, state, zip columns") {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}
