package routes

import (
	"net/http"

	"github.com/mediaudit/backend/internal/api/handlers"
	"github.com/mediaudit/backend/internal/api/middleware"
	"github.com/mediaudit/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	auditHandler  *handlers.AuditHandler
	policyHandler *handlers.PolicyHandler
	reportHandler *handlers.ReportHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	auditHandler *handlers.AuditHandler,
	policyHandler *handlers.PolicyHandler,
	reportHandler *handlers.ReportHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		auditHandler:  auditHandler,
		policyHandler: policyHandler,
		reportHandler: reportHandler,
		metrics:       metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Extraction and audit endpoints
	r.mux.HandleFunc("POST /api/extract", r.auditHandler.ExtractBill)
	r.mux.HandleFunc("POST /api/audits", r.auditHandler.RunAudit)

	// Policy endpoints
	r.mux.HandleFunc("GET /api/policies/baseline", r.policyHandler.GetBaseline)
	r.mux.HandleFunc("POST /api/policies/parse", r.policyHandler.ParsePolicy)

	// Report endpoints
	r.mux.HandleFunc("POST /api/reports", r.reportHandler.CreateReport)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
