package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/auth"
	"github.com/yourorg/comps-api/internal/batch"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/logx"
	"github.com/yourorg/comps-api/internal/report"
	"github.com/yourorg/comps-api/internal/valuation"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxUpload = 10 << 20

var funcs = template.FuncMap{
	"currency":       report.Currency,
	"wholeCurrency":  report.WholeCurrency,
	"number":         report.Number,
	"sqft":           report.Sqft,
	"miles":          report.Miles,
	"yesno":          report.YesNo,
	"confidence":     report.Confidence,
	"subjectAddress": report.SubjectAddress,
	"compAddress":    report.ComparableAddress,
	"firstComps": func(cs []comps.ComparableRecord) []comps.ComparableRecord {
		if len(cs) > report.ComparablesShown {
			return cs[:report.ComparablesShown]
		}
		return cs
	},
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"login", "signup", "index", "result"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
}

// Default lookup shown on the form.
var defaultForm = map[string]string{
	"address": "531 NE Beck Rd",
	"city":    "Belfair",
	"state":   "WA",
	"zip":     "98528",
}

type page struct {
	Title     string
	User      string
	Error     string
	Form      map[string]string
	Endpoints []acumidata.Endpoint
	Endpoint  acumidata.Endpoint
	Result    *valuation.Result
	Raw       string
}

type DashboardDeps struct {
	Auth           *auth.Service
	Lookup         batch.Looker
	SessionTTL     time.Duration
	BatchTimeout   time.Duration
	LoginRateLimit int
}

func RegisterDashboard(r chi.Router, d DashboardDeps) {
	limit := d.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	throttle := httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, req *http.Request) {
			d.render(w, req, http.StatusTooManyRequests, "login", page{Title: "Sign in", Error: "Too many attempts, wait a minute and try again"})
		}),
	)

	r.Get("/login", func(w http.ResponseWriter, req *http.Request) {
		d.render(w, req, http.StatusOK, "login", page{Title: "Sign in"})
	})
	r.Get("/signup", func(w http.ResponseWriter, req *http.Request) {
		d.render(w, req, http.StatusOK, "signup", page{Title: "Sign up"})
	})
	r.With(throttle).Post("/login", d.login)
	r.With(throttle).Post("/signup", d.signup)
	r.Post("/logout", d.logout)

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Require(func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/login", http.StatusSeeOther)
		}))
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			d.render(w, req, http.StatusOK, "index", d.indexPage(defaultForm, acumidata.Advantage))
		})
		r.Post("/lookup", d.lookup)
		r.Post("/batch", d.batch)
	})
}

func (d DashboardDeps) render(w http.ResponseWriter, req *http.Request, status int, name string, p page) {
	if p.User == "" {
		p.User = auth.Username(req.Context())
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages[name].ExecuteTemplate(w, "layout", p); err != nil {
		logx.FromContext(req.Context()).Error("render page", "page", name, "err", err)
	}
}

func (d DashboardDeps) indexPage(form map[string]string, ep acumidata.Endpoint) page {
	return page{Title: "Lookup", Form: form, Endpoints: acumidata.Endpoints(), Endpoint: ep}
}

func formValues(req *http.Request, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = req.PostFormValue(k)
	}
	return out
}

func (d DashboardDeps) login(w http.ResponseWriter, req *http.Request) {
	form := formValues(req, "username")
	token, err := d.Auth.Login(req.Context(), form["username"], req.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logx.FromContext(req.Context()).Error("login failed", "err", err)
		}
		d.render(w, req, http.StatusUnauthorized, "login", page{Title: "Sign in", Error: auth.Message(err), Form: form})
		return
	}
	auth.SetCookie(w, req, token, d.SessionTTL)
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

func (d DashboardDeps) signup(w http.ResponseWriter, req *http.Request) {
	form := formValues(req, "username", "email")
	_, err := d.Auth.Signup(req.Context(), auth.Signup{
		Username: form["username"],
		Email:    form["email"],
		Password: req.PostFormValue("password"),
		Confirm:  req.PostFormValue("confirm"),
	})
	if err != nil {
		d.render(w, req, http.StatusBadRequest, "signup", page{Title: "Sign up", Error: auth.Message(err), Form: form})
		return
	}
	http.Redirect(w, req, "/login", http.StatusSeeOther)
}

func (d DashboardDeps) logout(w http.ResponseWriter, req *http.Request) {
	if err := d.Auth.Logout(req.Context(), auth.Token(req)); err != nil {
		logx.FromContext(req.Context()).Warn("logout failed", "err", err)
	}
	auth.ClearCookie(w)
	http.Redirect(w, req, "/login", http.StatusSeeOther)
}

func (d DashboardDeps) lookup(w http.ResponseWriter, req *http.Request) {
	form := formValues(req, "address", "city", "state", "zip")
	ep, err := acumidata.ParseEndpoint(req.PostFormValue("endpoint"))
	if err != nil {
		p := d.indexPage(form, acumidata.Advantage)
		p.Error = err.Error()
		d.render(w, req, http.StatusBadRequest, "index", p)
		return
	}

	addr := acumidata.Address{Street: form["address"], City: form["city"], State: form["state"], Zip: form["zip"]}
	res, err := d.Lookup.Lookup(req.Context(), ep, addr)
	if err != nil {
		status, _ := lookupStatus(err)
		if status == http.StatusBadRequest {
			p := d.indexPage(form, ep)
			p.Error = "Please enter street address, city, state and ZIP"
			d.render(w, req, status, "index", p)
			return
		}
		logx.FromContext(req.Context()).Warn("lookup failed", "endpoint", ep, "address", addr.String(), "err", err)
		d.render(w, req, status, "result", page{Title: "Lookup failed", Error: "Error: " + err.Error(), Raw: pretty(res.Raw)})
		return
	}
	d.render(w, req, http.StatusOK, "result", page{Title: "Valuation", Result: &res, Raw: pretty(res.Raw)})
}

func (d DashboardDeps) batch(w http.ResponseWriter, req *http.Request) {
	fail := func(status int, msg string) {
		p := d.indexPage(defaultForm, acumidata.Estimate)
		p.Error = msg
		d.render(w, req, status, "index", p)
	}

	req.Body = http.MaxBytesReader(w, req.Body, maxUpload)
	if err := req.ParseMultipartForm(maxUpload); err != nil {
		fail(http.StatusBadRequest, "Upload a CSV file of at most 10 MB")
		return
	}
	ep, err := acumidata.ParseEndpoint(req.FormValue("endpoint"))
	if err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}
	file, _, err := req.FormFile("file")
	if err != nil {
		fail(http.StatusBadRequest, "Choose a CSV file to upload")
		return
	}
	defer file.Close()

	log := logx.FromContext(req.Context())
	job := &batch.Job{Service: d.Lookup, Endpoint: ep, RequestTimeout: d.BatchTimeout, Log: log}
	var out bytes.Buffer
	stats, err := job.Enrich(req.Context(), file, &out)
	if errors.Is(err, batch.ErrMissingColumns) {
		fail(http.StatusBadRequest, "CSV must have address, city, state, zip columns")
		return
	}
	if err != nil {
		log.Error("batch failed", "err", err)
		fail(http.StatusInternalServerError, "Batch processing failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="enriched_properties.csv"`)
	w.Header().Set("X-Batch-Rows", strconv.Itoa(stats.Rows))
	w.Header().Set("X-Batch-Failed", strconv.Itoa(stats.Failed))
	_, _ = w.Write(out.Bytes())
}

func pretty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
