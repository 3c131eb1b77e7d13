package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/keepithuman/netconfig-automation/internal/observability"
)

// requireToken rejects requests that do not carry a valid bearer token.
// Login, health, docs and metrics stay outside this middleware.
func requireToken(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				respondError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			token, found := strings.CutPrefix(raw, "Bearer ")
			if !found {
				respondError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
				return
			}
			if _, err := tokens.Validate(strings.TrimSpace(token)); err != nil {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// observeRequests records method, route pattern, status and latency
// for every request once the handler chain has finished.
func observeRequests(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(started))
		})
	}
}
