// -----------------------------------------------------------------------
// Report Job - In-memory lifecycle state for a report generation run
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a report job.
// Transitions are one-directional: pending -> running -> complete|failed.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// JobStage identifies the pipeline stage a running job is executing.
type JobStage string

const (
	StageQueued              JobStage = "queued"
	StageParsingModel        JobStage = "parsing_model"
	StageLoadingTemplate     JobStage = "loading_template"
	StageResearchingCompany  JobStage = "researching_company"
	StageResearchingIndustry JobStage = "researching_industry"
	StageGeneratingNarrative JobStage = "generating_narratives"
	StageAssemblingDocument  JobStage = "assembling_document"
	StageSavingReport        JobStage = "saving_report"
	StageComplete            JobStage = "complete"
	StageFailed              JobStage = "failed"
)

// stageProgress maps each stage to its canonical progress anchor.
// Progress only moves forward; a job reporting a stage implies at least
// this percentage. Queued jobs sit at zero until the pipeline starts.
var stageProgress = map[JobStage]int{
	StageParsingModel:        5,
	StageLoadingTemplate:     15,
	StageResearchingCompany:  25,
	StageResearchingIndustry: 40,
	StageGeneratingNarrative: 50,
	StageAssemblingDocument:  75,
	StageSavingReport:        90,
	StageComplete:            100,
}

// ProgressFor returns the canonical progress anchor for a stage. Stages
// without an anchor (queued, failed, unknown) report 0 so callers fall
// back to the job's last recorded progress.
func ProgressFor(stage JobStage) int {
	return stageProgress[stage]
}

// ReportJob tracks a single report generation run. The job registry owns
// all instances; callers receive copies and must never mutate shared state.
//
// Lifecycle:
//  1. Submit creates the job in pending/queued
//  2. The pipeline goroutine publishes progress events per stage
//  3. MarkComplete or MarkFailed ends the run; terminal jobs never change
type ReportJob struct {
	ID           string `json:"id"`
	EngagementID string `json:"engagement_id"`

	Status   JobStatus `json:"status"`
	Stage    JobStage  `json:"stage"`
	Progress int       `json:"progress"` // 0-100, non-decreasing while running
	Message  string    `json:"message,omitempty"`

	// Error holds the failure cause for failed jobs. Warnings accumulate
	// non-fatal issues (skipped sections, placeholder gaps, review flags)
	// and survive into the terminal state.
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ReportID references the persisted report record once saving succeeds.
	ReportID string `json:"report_id,omitempty"`
}

// NewReportJob creates a pending job for an engagement.
func NewReportJob(id, engagementID string) *ReportJob {
	return &ReportJob{
		ID:           id,
		EngagementID: engagementID,
		Status:       JobStatusPending,
		Stage:        StageQueued,
		Progress:     ProgressFor(StageQueued),
		Message:      "queued",
		CreatedAt:    time.Now(),
	}
}

// MarkStarted transitions the job to running.
func (j *ReportJob) MarkStarted() {
	j.Status = JobStatusRunning
	now := time.Now()
	j.StartedAt = &now
}

// MarkComplete transitions the job to its successful terminal state.
func (j *ReportJob) MarkComplete(reportID string) {
	j.Status = JobStatusComplete
	j.Stage = StageComplete
	j.Progress = 100
	j.Message = "report generated"
	j.ReportID = reportID
	now := time.Now()
	j.CompletedAt = &now
}

// MarkFailed transitions the job to its failed terminal state, recording
// the cause. Accumulated warnings are preserved.
func (j *ReportJob) MarkFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.Stage = StageFailed
	j.Error = errorMsg
	j.Message = "failed: " + errorMsg
	now := time.Now()
	j.CompletedAt = &now
}

// ApplyProgress records a stage transition. Progress is clamped so it never
// decreases; out-of-order or duplicate events cannot move the bar backwards.
func (j *ReportJob) ApplyProgress(stage JobStage, progress int, message string) {
	j.Stage = stage
	if progress > j.Progress {
		j.Progress = progress
	}
	if message != "" {
		j.Message = message
	}
}

// AddWarning appends a non-fatal issue to the job record.
func (j *ReportJob) AddWarning(warning string) {
	j.Warnings = append(j.Warnings, warning)
}

// IsTerminal returns true once the job has completed or failed.
func (j *ReportJob) IsTerminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusFailed
}

// Clone returns a copy safe to hand to callers outside the registry lock.
func (j *ReportJob) Clone() ReportJob {
	clone := *j
	if j.Warnings != nil {
		clone.Warnings = make([]string, len(j.Warnings))
		copy(clone.Warnings, j.Warnings)
	}
	return clone
}

// ReportOptions carries the per-run switches a caller submits with a job.
type ReportOptions struct {
	// TemplateID selects the document template; empty selects the default.
	TemplateID string `json:"template_id,omitempty"`

	// SkipFailedSections degrades section-level generation failures to
	// placeholders and warnings instead of failing the whole job.
	SkipFailedSections bool `json:"skip_failed_sections"`

	// ResearchCompany and ResearchIndustry toggle the research stages.
	ResearchCompany  bool `json:"research_company"`
	ResearchIndustry bool `json:"research_industry"`

	// AdditionalContext is free-text caller guidance (interview notes,
	// transcript excerpts) folded into generation prompts.
	AdditionalContext string `json:"additional_context,omitempty"`
}

// DefaultReportOptions returns the options applied when a submission
// leaves them unset.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		SkipFailedSections: true,
		ResearchCompany:    true,
		ResearchIndustry:   true,
	}
}
