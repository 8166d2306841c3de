// -----------------------------------------------------------------------
// Engagement - Persisted valuation engagement record
// -----------------------------------------------------------------------

package models

import "time"

// EngagementStatus tracks where an engagement sits in its review workflow.
type EngagementStatus string

const (
	EngagementStatusDraft     EngagementStatus = "draft"
	EngagementStatusGenerated EngagementStatus = "generated"
	EngagementStatusInReview  EngagementStatus = "in_review"
	EngagementStatusFinal     EngagementStatus = "final"
)

// Engagement is the persisted record for a valuation engagement. File
// content is stored on the filesystem; the record carries opaque paths.
type Engagement struct {
	ID          string           `json:"id" badgerhold:"key"`
	CompanyName string           `json:"company_name"`
	Industry    string           `json:"industry,omitempty"`
	Status      EngagementStatus `json:"status"`

	// ModelFilePath points at the uploaded valuation workbook.
	// TranscriptText holds optional interview notes used as generation context.
	ModelFilePath  string `json:"model_file_path,omitempty"`
	TemplateID     string `json:"template_id,omitempty"`
	TranscriptText string `json:"transcript_text,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEngagement creates a draft engagement.
func NewEngagement(id, companyName string) *Engagement {
	now := time.Now()
	return &Engagement{
		ID:          id,
		CompanyName: companyName,
		Status:      EngagementStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Touch updates the modification timestamp.
func (e *Engagement) Touch() {
	e.UpdatedAt = time.Now()
}

// -----------------------------------------------------------------------
// Generated Report - Persisted record of a completed report artifact
// -----------------------------------------------------------------------

// GeneratedReport records a saved report artifact. The artifact bytes live
// on the filesystem; the record carries the path, format, and the review
// flags and warnings the pipeline accumulated.
type GeneratedReport struct {
	ID           string `json:"id" badgerhold:"key"`
	EngagementID string `json:"engagement_id" badgerhold:"index"`
	JobID        string `json:"job_id"`

	ArtifactPath string `json:"artifact_path"`
	Format       string `json:"format"` // "pdf" or "markdown"

	Flags    []Flag   `json:"flags,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------
// Economic Outlook - Stored quarterly narrative reused across reports
// -----------------------------------------------------------------------

// EconomicOutlook is the firm-maintained quarterly economic narrative.
// Reports embed the most recent quarter's text verbatim (source "stored").
type EconomicOutlook struct {
	Quarter   string    `json:"quarter" badgerhold:"key"` // e.g. "2026Q3"
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}
