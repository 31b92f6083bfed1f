package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Estimate generation
	mux.HandleFunc("/api/estimates/generate", s.app.EstimateHandler.GenerateHandler)

	// Jobs: list, status polling, cancellation
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.JobRoutesHandler) // /api/jobs/{id}[/status]

	// Catalog
	mux.HandleFunc("/api/catalog/products", s.app.CatalogHandler.ProductsHandler)
	mux.HandleFunc("/api/catalog/backfill", s.app.CatalogHandler.BackfillHandler)

	// Settings
	mux.HandleFunc("/api/settings", s.app.SettingsHandler.SettingsRouteHandler)

	// System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)

	return mux
}
