package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/comps-api/http"
	"github.com/yourorg/comps-api/internal/auth"
	"github.com/yourorg/comps-api/internal/batch"
	"github.com/yourorg/comps-api/internal/config"
)

type RouterDeps struct {
	Config *config.Config
	Log    *slog.Logger
	Auth   *auth.Service
	Lookup batch.Looker
	// Checks are pinged by /health, keyed by dependency name.
	Checks map[string]func(context.Context) error
}

func BuildRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, httpapi.RequestLogger(d.Log), middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		ok := true
		for name, check := range d.Checks {
			if err := check(ctx); err != nil {
				status[name], ok = err.Error(), false
				continue
			}
			status[name] = "ok"
		}
		if !ok {
			render.Status(req, http.StatusServiceUnavailable)
		}
		render.JSON(w, req, map[string]any{"ok": ok, "checks": status})
	})

	httpapi.RegisterDashboard(r, httpapi.DashboardDeps{
		Auth:           d.Auth,
		Lookup:         d.Lookup,
		SessionTTL:     d.Config.Session.TTL,
		BatchTimeout:   d.Config.BatchTimeout,
		LoginRateLimit: d.Config.Session.LoginRateLimit,
	})
	httpapi.RegisterValuation(r, httpapi.ValuationDeps{
		Lookup:         d.Lookup,
		Auth:           d.Auth,
		AllowedOrigins: d.Config.AllowedOrigins,
	})
	return r
}
