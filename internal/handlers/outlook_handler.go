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

// UpsertOutlookRequest is the body for PUT /api/outlook. The stored text
// is embedded verbatim in every report generated until the next update.
type UpsertOutlookRequest struct {
	Quarter string `json:"quarter" validate:"required"`
	Text    string `json:"text" validate:"required"`
}

// OutlookHandler handles quarterly economic outlook HTTP requests
type OutlookHandler struct {
	outlooks interfaces.OutlookStorage
	logger   arbor.ILogger
}

// NewOutlookHandler creates a new outlook handler
func NewOutlookHandler(outlooks interfaces.OutlookStorage, logger arbor.ILogger) *OutlookHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &OutlookHandler{
		outlooks: outlooks,
		logger:   logger,
	}
}

// UpsertOutlookHandler handles PUT /api/outlook - stores or replaces the
// outlook text for a quarter
func (h *OutlookHandler) UpsertOutlookHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req UpsertOutlookRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid outlook request")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	outlook := &models.EconomicOutlook{
		Quarter: req.Quarter,
		Text:    req.Text,
	}
	if err := h.outlooks.Store(r.Context(), outlook); err != nil {
		h.logger.Error().Err(err).Str("quarter", req.Quarter).Msg("Failed to store economic outlook")
		WriteError(w, http.StatusInternalServerError, "Failed to store economic outlook")
		return
	}

	h.logger.Info().Str("quarter", outlook.Quarter).Msg("Economic outlook stored")

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"quarter": outlook.Quarter,
	})
}

// GetLatestOutlookHandler handles GET /api/outlook - returns the most
// recently updated outlook
func (h *OutlookHandler) GetLatestOutlookHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	outlook, err := h.outlooks.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No economic outlook stored")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to get latest economic outlook")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve economic outlook")
		return
	}

	WriteJSON(w, http.StatusOK, outlook)
}

// GetOutlookHandler handles GET /api/outlook/{quarter}
func (h *OutlookHandler) GetOutlookHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	quarter := strings.TrimPrefix(r.URL.Path, "/api/outlook/")
	if quarter == "" {
		WriteError(w, http.StatusBadRequest, "Missing quarter")
		return
	}

	outlook, err := h.outlooks.Get(r.Context(), quarter)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Economic outlook not found")
			return
		}
		h.logger.Error().Err(err).Str("quarter", quarter).Msg("Failed to get economic outlook")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve economic outlook")
		return
	}

	WriteJSON(w, http.StatusOK, outlook)
}
