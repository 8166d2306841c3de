package handlers

import (
	"net/http"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/ternarybob/arbor"
)

// APIHandler serves the system endpoints: version, health, and the JSON
// 404 for unmatched API paths.
type APIHandler struct {
	logger arbor.ILogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(logger arbor.ILogger) *APIHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &APIHandler{logger: logger}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
	})
}

// NotFoundHandler answers unmatched API paths with a JSON 404.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("path", r.URL.Path).Msg("Unmatched API path")
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"status": "error",
		"error":  "no such endpoint",
		"path":   r.URL.Path,
	})
}
