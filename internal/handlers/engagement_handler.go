package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
)

// CreateEngagementRequest is the body for POST /api/engagements.
type CreateEngagementRequest struct {
	CompanyName    string `json:"company_name" validate:"required"`
	Industry       string `json:"industry"`
	ModelFilePath  string `json:"model_file_path"`
	TemplateID     string `json:"template_id"`
	TranscriptText string `json:"transcript_text"`
}

// EngagementHandler handles engagement record HTTP requests
type EngagementHandler struct {
	engagements interfaces.EngagementStorage
	reports     interfaces.ReportStorage
	logger      arbor.ILogger
}

// NewEngagementHandler creates a new engagement handler
func NewEngagementHandler(engagements interfaces.EngagementStorage, reports interfaces.ReportStorage, logger arbor.ILogger) *EngagementHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &EngagementHandler{
		engagements: engagements,
		reports:     reports,
		logger:      logger,
	}
}

// CreateEngagementHandler handles POST /api/engagements
func (h *EngagementHandler) CreateEngagementHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req CreateEngagementRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid engagement creation request")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	engagement := models.NewEngagement(common.NewEngagementID(), req.CompanyName)
	engagement.Industry = req.Industry
	engagement.ModelFilePath = req.ModelFilePath
	engagement.TemplateID = req.TemplateID
	engagement.TranscriptText = req.TranscriptText

	if err := h.engagements.Store(r.Context(), engagement); err != nil {
		h.logger.Error().Err(err).Str("company", req.CompanyName).Msg("Failed to store engagement")
		WriteError(w, http.StatusInternalServerError, "Failed to create engagement")
		return
	}

	h.logger.Info().
		Str("engagement_id", engagement.ID).
		Str("company", engagement.CompanyName).
		Msg("Engagement created")

	WriteJSON(w, http.StatusCreated, engagement)
}

// ListEngagementsHandler handles GET /api/engagements
func (h *EngagementHandler) ListEngagementsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	engagements, err := h.engagements.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list engagements")
		WriteError(w, http.StatusInternalServerError, "Failed to list engagements")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(engagements),
		"engagements": engagements,
	})
}

// GetEngagementHandler handles GET /api/engagements/{id}
func (h *EngagementHandler) GetEngagementHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/engagements/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing engagement ID")
		return
	}

	engagement, err := h.engagements.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Engagement not found")
			return
		}
		h.logger.Error().Err(err).Str("engagement_id", id).Msg("Failed to get engagement")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve engagement")
		return
	}

	WriteJSON(w, http.StatusOK, engagement)
}

// ListEngagementReportsHandler handles GET /api/engagements/{id}/reports -
// lists generated report records for an engagement, newest first
func (h *EngagementHandler) ListEngagementReportsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/engagements/"), "/reports")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing engagement ID")
		return
	}

	reports, err := h.reports.GetByEngagement(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("engagement_id", id).Msg("Failed to list reports")
		WriteError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(reports),
		"reports": reports,
	})
}
