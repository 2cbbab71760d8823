// Package app wires the HTTP router, readiness checks, and background jobs.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/hiresim/interview-evaluator/internal/adapter/httpserver"
	"github.com/hiresim/interview-evaluator/internal/adapter/observability"
	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/domain"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server, idp domain.IdentityProvider) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	// Streaming evaluations can take minutes; the timeout covers the
	// whole request.
	r.Use(httpserver.TimeoutMiddleware(cfg.HTTPWriteTimeout))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := httpserver.RequireUser(idp)

	// Mutating endpoints: authenticated and rate limited per IP.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		wr.Use(auth)
		wr.Post("/v1/interviews", srv.StartInterviewHandler())
		wr.Post("/v1/interviews/{id}/answer", srv.AnswerHandler())
		wr.Delete("/v1/interviews/{id}", srv.DeleteInterviewHandler())
		wr.Post("/v1/transcribe", srv.TranscribeHandler())
	})

	// Authenticated reads.
	r.Group(func(rr chi.Router) {
		rr.Use(auth)
		rr.Get("/v1/interviews", srv.ListInterviewsHandler())
		rr.Get("/v1/interviews/{id}/messages", srv.MessagesHandler())
		rr.Get("/v1/interviews/{id}/feedback", srv.FeedbackHandler())
	})

	// Public endpoints.
	r.Get("/v1/questions", srv.QuestionsHandler())
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
