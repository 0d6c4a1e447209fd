package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yourorg/comps-api/internal/snapshot"
)

const CookieName = "comps_session"

type ctxKey struct{}

// Username returns the signed-in user stored by Require.
func Username(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// SetCookie issues the session cookie.
func SetCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// Token reads the session token from the request cookie.
func Token(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Require lets signed-in requests through and hands the rest to denied.
// The username is stored in the context and recorded as the requester of
// any snapshot written while serving the request.
func (s *Service) Require(denied http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, err := s.Session(r.Context(), Token(r))
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					s.logger().Error("session lookup failed", "err", err)
				}
				denied(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, name)
			ctx = snapshot.WithRequester(ctx, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
