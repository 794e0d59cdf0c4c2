package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", SubscriberHeader},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	wrap := func(route string, fn http.HandlerFunc) http.Handler {
		return h.metrics.WrapHandler(route, fn)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/subscribers/{id}", func(r chi.Router) {
			r.Method(http.MethodPost, "/readings", wrap("record_reading", h.RecordReading))
			r.Method(http.MethodGet, "/readings", wrap("list_readings", h.ListReadings))
			r.Method(http.MethodGet, "/deltas", wrap("list_deltas", h.ListDeltas))
			r.Method(http.MethodGet, "/stats", wrap("stats", h.GetStats))
			r.Method(http.MethodDelete, "/", wrap("purge", h.Purge))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Method(http.MethodPost, "/exec", wrap("admin_exec", h.Exec))
			r.Method(http.MethodPost, "/drop", wrap("admin_drop", h.DropTables))
		})
	})

	return r
}
