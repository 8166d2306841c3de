// -----------------------------------------------------------------------
// Orchestrator - Runs the report pipeline stages for one job
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/assembly"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/narrative"
	"github.com/ternarybob/arbor"
)

// maxModelBytes caps uploaded workbook reads. Larger files fail the job
// before any parsing work starts.
const maxModelBytes = 50 * 1024 * 1024

// Orchestrator executes pipeline stages strictly in order, reporting
// progress and warnings through the event service. It holds no job state;
// the registry owns that.
type Orchestrator struct {
	storage   interfaces.StorageManager
	parser    interfaces.ModelParser
	templates interfaces.TemplateService
	research  interfaces.ResearchService
	narrative *narrative.Service
	assembler *assembly.Assembler
	renderer  interfaces.ReportRenderer
	events    interfaces.EventService
	cfg       *common.Config
	logger    arbor.ILogger
}

// NewOrchestrator wires the pipeline collaborators.
func NewOrchestrator(
	storage interfaces.StorageManager,
	parser interfaces.ModelParser,
	templates interfaces.TemplateService,
	research interfaces.ResearchService,
	narrativeSvc *narrative.Service,
	assembler *assembly.Assembler,
	renderer interfaces.ReportRenderer,
	events interfaces.EventService,
	cfg *common.Config,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		storage:   storage,
		parser:    parser,
		templates: templates,
		research:  research,
		narrative: narrativeSvc,
		assembler: assembler,
		renderer:  renderer,
		events:    events,
		cfg:       cfg,
		logger:    logger,
	}
}

// Execute runs the full pipeline for one job and returns the persisted
// report ID. Any returned error fails the job; warnings have already been
// published by the time control returns.
func (o *Orchestrator) Execute(ctx context.Context, jobID, engagementID string, opts models.ReportOptions) (string, error) {
	log := o.logger.WithCorrelationId(jobID)
	start := time.Now()

	// parsing_model
	o.progress(ctx, jobID, models.StageParsingModel, "parsing valuation model")

	engagement, err := o.storage.Engagements().Get(ctx, engagementID)
	if err != nil {
		return "", fmt.Errorf("load engagement: %w", err)
	}

	parsed, err := o.parseModel(ctx, engagement)
	if err != nil {
		return "", err
	}
	for _, msg := range parsed.Errors {
		o.warn(ctx, jobID, "model extraction: "+msg)
	}
	for _, msg := range parsed.Warnings {
		o.warn(ctx, jobID, "model extraction: "+msg)
	}
	if err := stageBoundary(ctx); err != nil {
		return "", err
	}

	// loading_template
	o.progress(ctx, jobID, models.StageLoadingTemplate, "loading report template")

	tmpl, err := o.loadTemplate(ctx, engagement, opts)
	if err != nil {
		return "", err
	}
	if err := stageBoundary(ctx); err != nil {
		return "", err
	}

	// researching_company / researching_industry
	companyResearch, industryResearch, err := o.runResearch(ctx, jobID, engagement, parsed, opts)
	if err != nil {
		return "", err
	}
	if err := stageBoundary(ctx); err != nil {
		return "", err
	}

	// generating_narratives
	o.progress(ctx, jobID, models.StageGeneratingNarrative, "generating narrative sections")

	content, err := o.narrative.Build(ctx, narrative.Input{
		Engagement:       engagement,
		Parsed:           parsed,
		Options:          opts,
		CompanyResearch:  companyResearch,
		IndustryResearch: industryResearch,
	})
	if err != nil {
		return "", fmt.Errorf("generate narratives: %w", err)
	}
	for _, warning := range content.Warnings {
		o.warn(ctx, jobID, warning)
	}
	if err := stageBoundary(ctx); err != nil {
		return "", err
	}

	// assembling_document
	o.progress(ctx, jobID, models.StageAssemblingDocument, "assembling document")

	artifact, assemblyWarnings, assemblyFlags := o.assembler.Assemble(tmpl, content, parsed)
	for _, warning := range assemblyWarnings {
		o.warn(ctx, jobID, warning)
	}

	documentBytes, err := o.renderer.Render(artifact.Markdown, artifact.Title)
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	if err := stageBoundary(ctx); err != nil {
		return "", err
	}

	// saving_report
	o.progress(ctx, jobID, models.StageSavingReport, "saving report")

	report, err := o.saveReport(ctx, jobID, engagement, documentBytes, content.Flags, assemblyFlags, append(content.Warnings, assemblyWarnings...))
	if err != nil {
		return "", err
	}

	log.Info().
		Str("report_id", report.ID).
		Str("engagement_id", engagementID).
		Int("flag_count", len(report.Flags)).
		Int("warning_count", len(report.Warnings)).
		Str("duration", time.Since(start).String()).
		Msg("Report pipeline complete")

	return report.ID, nil
}

// parseModel reads the engagement's workbook and extracts the valuation
// data tree. Extraction issues ride in the ParsedModel rather than erroring.
func (o *Orchestrator) parseModel(ctx context.Context, engagement *models.Engagement) (*models.ParsedModel, error) {
	if engagement.ModelFilePath == "" {
		return nil, fmt.Errorf("engagement %s has no valuation model file", engagement.ID)
	}

	info, err := os.Stat(engagement.ModelFilePath)
	if err != nil {
		return nil, fmt.Errorf("read valuation model: %w", err)
	}
	if info.Size() > maxModelBytes {
		return nil, fmt.Errorf("valuation model exceeds %d byte limit: %d", int64(maxModelBytes), info.Size())
	}

	data, err := os.ReadFile(engagement.ModelFilePath)
	if err != nil {
		return nil, fmt.Errorf("read valuation model: %w", err)
	}

	parsed, err := o.parser.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	// Engagement metadata backfills fields the workbook left out.
	if parsed.CompanyName == "" {
		parsed.CompanyName = engagement.CompanyName
	}
	if parsed.Industry == "" {
		parsed.Industry = engagement.Industry
	}

	return parsed, nil
}

// loadTemplate resolves the template: per-request option, engagement
// default, then configured default.
func (o *Orchestrator) loadTemplate(ctx context.Context, engagement *models.Engagement, opts models.ReportOptions) (*models.ReportTemplate, error) {
	templateID := opts.TemplateID
	if templateID == "" {
		templateID = engagement.TemplateID
	}
	if templateID == "" {
		templateID = o.cfg.Templates.DefaultID
	}

	tmpl, err := o.templates.Get(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	return tmpl, nil
}

// runResearch executes the optional research stages. A research failure
// follows the same skip policy as section generation: degrade to a warning
// when SkipFailedSections, else fail the job.
func (o *Orchestrator) runResearch(ctx context.Context, jobID string, engagement *models.Engagement, parsed *models.ParsedModel, opts models.ReportOptions) (*interfaces.CompanyResearch, *interfaces.IndustryResearch, error) {
	var (
		companyResearch  *interfaces.CompanyResearch
		industryResearch *interfaces.IndustryResearch
	)

	if opts.ResearchCompany {
		o.progress(ctx, jobID, models.StageResearchingCompany, "researching company background")

		name := parsed.CompanyName
		if name == "" {
			name = engagement.CompanyName
		}
		result, err := o.research.ResearchCompany(ctx, name, engagement.TranscriptText)
		switch {
		case err == nil:
			companyResearch = result
		case opts.SkipFailedSections:
			o.warn(ctx, jobID, fmt.Sprintf("company research failed: %v", err))
		default:
			return nil, nil, fmt.Errorf("research company: %w", err)
		}
		if err := stageBoundary(ctx); err != nil {
			return nil, nil, err
		}
	}

	if opts.ResearchIndustry {
		o.progress(ctx, jobID, models.StageResearchingIndustry, "researching industry outlook")

		industry := parsed.Industry
		if industry == "" {
			industry = engagement.Industry
		}
		result, err := o.research.ResearchIndustry(ctx, industry)
		switch {
		case err == nil:
			industryResearch = result
		case opts.SkipFailedSections:
			o.warn(ctx, jobID, fmt.Sprintf("industry research failed: %v", err))
		default:
			return nil, nil, fmt.Errorf("research industry: %w", err)
		}
	}

	return companyResearch, industryResearch, nil
}

// saveReport writes the artifact file and persists the report record, then
// marks the engagement generated.
func (o *Orchestrator) saveReport(ctx context.Context, jobID string, engagement *models.Engagement, documentBytes []byte, contentFlags, assemblyFlags []models.Flag, warnings []string) (*models.GeneratedReport, error) {
	reportID := common.NewReportID()

	reportsDir := o.cfg.Storage.Filesystem.Reports
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}

	artifactPath := filepath.Join(reportsDir, reportID+"."+o.renderer.Format())
	if err := os.WriteFile(artifactPath, documentBytes, 0o644); err != nil {
		return nil, fmt.Errorf("write report artifact: %w", err)
	}

	report := &models.GeneratedReport{
		ID:           reportID,
		EngagementID: engagement.ID,
		JobID:        jobID,
		ArtifactPath: artifactPath,
		Format:       o.renderer.Format(),
		Flags:        append(append([]models.Flag{}, contentFlags...), assemblyFlags...),
		Warnings:     warnings,
		CreatedAt:    time.Now(),
	}
	if err := o.storage.Reports().Store(ctx, report); err != nil {
		return nil, fmt.Errorf("store report record: %w", err)
	}

	engagement.Status = models.EngagementStatusGenerated
	engagement.Touch()
	if err := o.storage.Engagements().Store(ctx, engagement); err != nil {
		// The report exists; a stale engagement status is reviewer-visible
		// but not worth failing the job over.
		o.warn(ctx, jobID, fmt.Sprintf("update engagement status: %v", err))
	}

	return report, nil
}

// progress publishes a stage transition. Synchronous publish keeps events
// ordered per job.
func (o *Orchestrator) progress(ctx context.Context, jobID string, stage models.JobStage, message string) {
	event := interfaces.Event{
		Type: interfaces.EventJobProgress,
		Payload: interfaces.JobProgressEvent{
			JobID:    jobID,
			Stage:    string(stage),
			Progress: models.ProgressFor(stage),
			Message:  message,
		},
	}
	if err := o.events.PublishSync(ctx, event); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish progress event")
	}
}

// warn publishes a non-fatal warning against the job.
func (o *Orchestrator) warn(ctx context.Context, jobID, warning string) {
	event := interfaces.Event{
		Type: interfaces.EventJobWarning,
		Payload: interfaces.JobWarningEvent{
			JobID:   jobID,
			Warning: warning,
		},
	}
	if err := o.events.PublishSync(ctx, event); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish warning event")
	}
}

// stageBoundary is the cancellation check between stages.
func stageBoundary(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}
	return nil
}
