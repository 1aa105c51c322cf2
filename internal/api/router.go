// Package api exposes the HTTP surface of the enrichment service.
package api

import (
	"net/http"

	"github.com/kremlit/email-enricher/internal/api/handlers"
)

// Router sets up all API routes
type Router struct {
	mux      *http.ServeMux
	lookups  *handlers.LookupHandler
	batches  *handlers.BatchHandler
	stats    *handlers.StatsHandler
	profiles *handlers.LinkedInHandler
}

// NewRouter creates a new Router. profiles may be nil when the profile
// finder is disabled.
func NewRouter(
	lookups *handlers.LookupHandler,
	batches *handlers.BatchHandler,
	stats *handlers.StatsHandler,
	profiles *handlers.LinkedInHandler,
) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		lookups:  lookups,
		batches:  batches,
		stats:    stats,
		profiles: profiles,
	}
}

// Setup configures all routes
func (r *Router) Setup(token string) http.Handler {
	// Stats endpoint
	r.mux.HandleFunc("/api/v1/stats", r.stats.GetDashboardStats)

	// Single lookup
	r.mux.HandleFunc("/api/v1/lookups", r.lookups.Create)

	// Batch endpoints
	r.mux.HandleFunc("/api/v1/batches", r.handleBatches)
	r.mux.HandleFunc("/api/v1/batches/upload", r.batches.Upload)
	r.mux.HandleFunc("/api/v1/batches/stats", r.batches.GetStats)
	r.mux.HandleFunc("/api/v1/batches/{id}", r.handleBatch)
	r.mux.HandleFunc("/api/v1/batches/{id}/pause", r.batches.Pause)
	r.mux.HandleFunc("/api/v1/batches/{id}/resume", r.batches.Resume)
	r.mux.HandleFunc("/api/v1/batches/{id}/cancel", r.batches.Cancel)
	r.mux.HandleFunc("/api/v1/batches/{id}/outcomes", r.batches.Outcomes)
	r.mux.HandleFunc("/api/v1/batches/{id}/download", r.batches.Download)

	// Profile finder
	if r.profiles != nil {
		r.mux.HandleFunc("/api/v1/linkedin", r.profiles.Find)
	}

	// Apply middleware
	return Chain(r.mux,
		Recovery,
		Logger,
		CORS,
		SecurityHeaders,
		Auth(token),
	)
}

// handleBatches routes requests for /api/v1/batches
func (r *Router) handleBatches(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.batches.List(w, req)
	case http.MethodPost:
		r.batches.Create(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleBatch routes requests for /api/v1/batches/{id}
func (r *Router) handleBatch(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.batches.GetByID(w, req)
	case http.MethodDelete:
		r.batches.Delete(w, req)
	default:
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
