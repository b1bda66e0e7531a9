/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logger:     Structured request logging (logrus)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the front end

ROUTE GROUPS:
  /healthz              Liveness
  /metrics              Prometheus scrape endpoint
  /api/stock            Stock report
  /api/products/*       Per-batch stock
  /api/people/*         Receivable/payable balances
  /api/documents/*      Raw document ingestion
  /api/damages/*        Damage lifecycle
  /api/scenarios/*      Demo datasets

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stock", h.GetStock)
		r.Get("/products/{productID}/batches/{batchCode}/stock", h.GetBatchStock)

		r.Route("/people", func(r chi.Router) {
			r.Get("/balances", h.ListBalances)
			r.Get("/{personID}/balance", h.GetPersonBalance)
		})

		r.Route("/documents/{collection}", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Get("/{id}", h.GetDocument)
			r.Put("/{id}", h.PutDocument)
			r.Delete("/{id}", h.DeleteDocument)
		})

		r.Route("/damages", func(r chi.Router) {
			r.Get("/", h.ListDamages)
			r.Post("/", h.CreateDamage)
			r.Get("/{id}", h.GetDamage)
			r.Post("/{id}/resolve", h.ResolveDamage)
			r.Delete("/{id}", h.DeleteDamage)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"module":      "http",
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote":      r.RemoteAddr,
			}).Info("request")
		})
	}
}
