package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Report generation
	mux.HandleFunc("/api/reports/generate", s.app.ReportHandler.GenerateReportHandler) // POST - submit generation job
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)                                    // GET /{id}, POST /{id}/cancel

	// API routes - Engagements
	mux.HandleFunc("/api/engagements", s.handleEngagementsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/engagements/", s.handleEngagementRoutes) // GET /{id}, /{id}/job, /{id}/reports

	// API routes - Economic outlook
	mux.HandleFunc("/api/outlook", s.handleOutlookRoute)                    // GET (latest), PUT (upsert)
	mux.HandleFunc("/api/outlook/", s.app.OutlookHandler.GetOutlookHandler) // GET /{quarter}

	// API routes - Key/value settings (API keys and operator config)
	mux.HandleFunc("/api/kv", s.app.KVHandler.ListKVHandler) // GET - list with masked values
	mux.HandleFunc("/api/kv/", s.handleKVRoutes)             // GET/PUT/DELETE /{key}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes /api/jobs/{id} requests and the cancel action
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	_, action := subresource(r.URL.Path, "/api/jobs/")
	switch action {
	case "":
		s.app.ReportHandler.GetJobHandler(w, r)
	case "cancel":
		s.app.ReportHandler.CancelJobHandler(w, r)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleEngagementsRoute routes /api/engagements requests (list and create)
func (s *Server) handleEngagementsRoute(w http.ResponseWriter, r *http.Request) {
	routeByMethod(w, r, methodHandlers{
		http.MethodGet:  s.app.EngagementHandler.ListEngagementsHandler,
		http.MethodPost: s.app.EngagementHandler.CreateEngagementHandler,
	})
}

// handleEngagementRoutes routes /api/engagements/{id} requests and subpaths
func (s *Server) handleEngagementRoutes(w http.ResponseWriter, r *http.Request) {
	_, action := subresource(r.URL.Path, "/api/engagements/")
	switch action {
	case "":
		s.app.EngagementHandler.GetEngagementHandler(w, r)
	case "job":
		s.app.ReportHandler.GetEngagementJobHandler(w, r)
	case "reports":
		s.app.EngagementHandler.ListEngagementReportsHandler(w, r)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

// handleOutlookRoute routes /api/outlook requests (latest and upsert)
func (s *Server) handleOutlookRoute(w http.ResponseWriter, r *http.Request) {
	routeByMethod(w, r, methodHandlers{
		http.MethodGet: s.app.OutlookHandler.GetLatestOutlookHandler,
		http.MethodPut: s.app.OutlookHandler.UpsertOutlookHandler,
	})
}

// handleKVRoutes routes /api/kv/{key} requests
func (s *Server) handleKVRoutes(w http.ResponseWriter, r *http.Request) {
	routeByMethod(w, r, methodHandlers{
		http.MethodGet:    s.app.KVHandler.GetKVHandler,
		http.MethodPut:    s.app.KVHandler.SetKVHandler,
		http.MethodDelete: s.app.KVHandler.DeleteKVHandler,
	})
}
