package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/jobs"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
)

// ReportJobService is the job surface the report handlers consume.
type ReportJobService interface {
	Submit(ctx context.Context, engagementID string, opts models.ReportOptions) (string, error)
	Status(jobID string) (models.ReportJob, bool)
	StatusByEngagement(engagementID string) (models.ReportJob, bool)
	Cancel(jobID string) error
}

// GenerateReportRequest is the body for POST /api/reports/generate.
type GenerateReportRequest struct {
	EngagementID string                `json:"engagement_id" validate:"required"`
	Options      *models.ReportOptions `json:"options"`
}

// ReportHandler handles report generation and job lifecycle requests
type ReportHandler struct {
	jobs   ReportJobService
	logger arbor.ILogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(jobService ReportJobService, logger arbor.ILogger) *ReportHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &ReportHandler{
		jobs:   jobService,
		logger: logger,
	}
}

// GenerateReportHandler handles POST /api/reports/generate - submits a
// report generation job and returns 202 with the job ID. Callers poll
// GET /api/jobs/{id} for progress.
func (h *ReportHandler) GenerateReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req GenerateReportRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid report generation request")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := models.DefaultReportOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	jobID, err := h.jobs.Submit(r.Context(), req.EngagementID, opts)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobAlreadyRunning):
			WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, jobs.ErrShuttingDown):
			WriteError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error().Err(err).Str("engagement_id", req.EngagementID).Msg("Failed to submit report job")
			WriteError(w, http.StatusInternalServerError, "Failed to submit report job")
		}
		return
	}

	h.logger.Info().
		Str("job_id", jobID).
		Str("engagement_id", req.EngagementID).
		Msg("Report generation job submitted")

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(models.JobStatusPending),
	})
}

// GetJobHandler handles GET /api/jobs/{id} - returns the job record
func (h *ReportHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Missing job ID")
		return
	}

	job, ok := h.jobs.Status(jobID)
	if !ok {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// CancelJobHandler handles POST /api/jobs/{id}/cancel - requests
// cooperative cancellation of a running job
func (h *ReportHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	jobID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/cancel")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Missing job ID")
		return
	}

	if err := h.jobs.Cancel(jobID); err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			WriteError(w, http.StatusNotFound, "Job not found")
		case errors.Is(err, jobs.ErrJobNotCancellable):
			WriteError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel job")
			WriteError(w, http.StatusInternalServerError, "Failed to cancel job")
		}
		return
	}

	h.logger.Info().Str("job_id", jobID).Msg("Job cancellation requested")
	WriteSuccess(w, "Cancellation requested")
}

// GetEngagementJobHandler handles GET /api/engagements/{id}/job - returns
// the most recently created job for an engagement
func (h *ReportHandler) GetEngagementJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	engagementID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/engagements/"), "/job")
	if engagementID == "" {
		WriteError(w, http.StatusBadRequest, "Missing engagement ID")
		return
	}

	job, ok := h.jobs.StatusByEngagement(engagementID)
	if !ok {
		WriteError(w, http.StatusNotFound, "No jobs for engagement")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
