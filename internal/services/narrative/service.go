// -----------------------------------------------------------------------
// Narrative Assembler - Builds the report content tree from parsed model
// data, stored text, and AI-generated sections
// -----------------------------------------------------------------------

package narrative

import (
	"context"
	"fmt"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/workers"
	"github.com/ternarybob/arbor"
)

const (
	// failedSectionPlaceholder replaces a section whose generation failed
	// when SkipFailedSections is set. Rendering keeps it visible so a
	// reviewer cannot miss it.
	failedSectionPlaceholder = "[Section generation failed - requires manual completion]"

	// missingOutlookPlaceholder stands in when no quarterly economic
	// outlook has been stored.
	missingOutlookPlaceholder = "[Economic outlook not available - requires manual completion]"

	// defaultAIConfidence applies to generated sections with no
	// research-reported confidence to inherit.
	defaultAIConfidence = 0.8
)

// Input carries everything the assembler consumes for one job. Research
// results are optional; the orchestrator populates them only when the
// corresponding research stages ran.
type Input struct {
	Engagement       *models.Engagement
	Parsed           *models.ParsedModel
	Options          models.ReportOptions
	CompanyResearch  *interfaces.CompanyResearch
	IndustryResearch *interfaces.IndustryResearch
}

// Service builds ReportContent trees. AI sections fan out on a bounded
// worker pool; stored and template content is filled in synchronously.
type Service struct {
	generation  interfaces.GenerationService
	outlooks    interfaces.OutlookStorage
	concurrency int
	logger      arbor.ILogger
}

// NewService creates a narrative assembler.
func NewService(generation interfaces.GenerationService, outlooks interfaces.OutlookStorage, concurrency int, logger arbor.ILogger) *Service {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Service{
		generation:  generation,
		outlooks:    outlooks,
		concurrency: concurrency,
		logger:      logger,
	}
}

// sectionResult is one AI section's outcome. Each pool task writes its own
// slot, so merging after Wait needs no locking.
type sectionResult struct {
	content models.SectionContent
	err     error
}

// Build assembles the full content tree. Missing model fields flag rather
// than fail; section generation failures follow Options.SkipFailedSections.
// Warnings aggregate deterministically: overview, industry, economic,
// approaches in model order, conclusion.
func (s *Service) Build(ctx context.Context, in Input) (*models.ReportContent, error) {
	start := time.Now()

	content := &models.ReportContent{
		ValuationAnalysis: make(map[string]models.SectionContent),
		GeneratedAt:       start,
	}

	s.flagMissingFields(in.Parsed, content)
	s.loadEconomicOutlook(ctx, content)

	contextText := combineContext(in.Engagement, in.Options)

	var approaches []models.Approach
	if in.Parsed.Summary != nil {
		approaches = in.Parsed.Summary.Approaches
	}

	var (
		overview        sectionResult
		industry        sectionResult
		conclusion      sectionResult
		approachResults = make([]sectionResult, len(approaches))
	)

	pool := workers.NewPool(ctx, s.concurrency, s.logger)
	pool.Start()

	submit := func(slot *sectionResult, prompt string) {
		// Tasks record into their own slot and never surface errors to the
		// pool; failure policy is applied during the ordered merge.
		_ = pool.Submit(func(taskCtx context.Context) error {
			slot.content, slot.err = s.generateSection(taskCtx, prompt)
			return nil
		})
	}

	submit(&overview, companyOverviewPrompt(in.Parsed.CompanyName, in.CompanyResearch, contextText))
	submit(&industry, industryOutlookPrompt(in.Parsed.Industry, in.IndustryResearch))
	for i := range approaches {
		submit(&approachResults[i], approachPrompt(approaches[i], in.Parsed))
	}
	submit(&conclusion, conclusionPrompt(in.Parsed))

	pool.Wait()

	if in.CompanyResearch != nil && overview.err == nil {
		overview.content.Confidence = researchConfidence(in.CompanyResearch.ConfidenceStr)
	}
	if in.IndustryResearch != nil {
		if industry.err == nil {
			industry.content.Confidence = researchConfidence(in.IndustryResearch.ConfidenceStr)
		}
		content.IndustryCitations = in.IndustryResearch.Citations
	}

	skip := in.Options.SkipFailedSections

	if err := s.mergeSection(content, "company_overview", overview, skip, func(sc models.SectionContent) {
		content.CompanyOverview = sc
	}); err != nil {
		return nil, err
	}
	if err := s.mergeSection(content, "industry_outlook", industry, skip, func(sc models.SectionContent) {
		content.IndustryOutlook = sc
	}); err != nil {
		return nil, err
	}

	// Economic outlook warnings slot between industry and the approaches.
	content.Warnings = append(content.Warnings, content.EconomicOutlook.Warnings...)

	for i, approach := range approaches {
		name := approach.Name
		key := "valuation:" + name
		if err := s.mergeSection(content, key, approachResults[i], skip, func(sc models.SectionContent) {
			content.ValuationAnalysis[name] = sc
		}); err != nil {
			return nil, err
		}
		content.ApproachOrder = append(content.ApproachOrder, name)
	}

	if err := s.mergeSection(content, "conclusion", conclusion, skip, func(sc models.SectionContent) {
		content.Conclusion = sc
	}); err != nil {
		return nil, err
	}

	content.GenerationDuration = time.Since(start)

	s.logger.Info().
		Int("approach_count", len(approaches)).
		Int("flag_count", len(content.Flags)).
		Int("warning_count", len(content.Warnings)).
		Str("duration", content.GenerationDuration.String()).
		Msg("Narrative content assembled")

	return content, nil
}

// generateSection runs one provider call and wraps the text with AI
// provenance. Retry behavior lives inside the generation client.
func (s *Service) generateSection(ctx context.Context, prompt string) (models.SectionContent, error) {
	text, err := s.generation.Generate(ctx, prompt, interfaces.GenerateOptions{
		SystemPrompt: analystSystemPrompt,
	})
	if err != nil {
		return models.SectionContent{}, err
	}

	return models.SectionContent{
		Content:    text,
		Source:     models.SourceAI,
		Confidence: defaultAIConfidence,
	}, nil
}

// mergeSection applies the failure policy for one section and folds its
// warnings into the aggregate.
func (s *Service) mergeSection(content *models.ReportContent, key string, result sectionResult, skip bool, assign func(models.SectionContent)) error {
	if result.err != nil {
		if !skip {
			return fmt.Errorf("generate %s: %w", key, result.err)
		}

		warning := fmt.Sprintf("%s generation failed: %v", key, result.err)
		assign(models.SectionContent{
			Content:    failedSectionPlaceholder,
			Source:     models.SourceTemplate,
			Confidence: 0,
		})
		content.AddWarning(warning)
		content.AddFlag(key, warning, models.FlagError)

		s.logger.Warn().
			Err(result.err).
			Str("section", key).
			Msg("Section generation failed, placeholder substituted")

		return nil
	}

	assign(result.content)
	content.Warnings = append(content.Warnings, result.content.Warnings...)
	return nil
}

// flagMissingFields records reviewer flags for required model fields that
// the parser could not extract. Generation proceeds regardless.
func (s *Service) flagMissingFields(parsed *models.ParsedModel, content *models.ReportContent) {
	if parsed.CompanyName == "" {
		content.AddFlag("parsed_model", "company name missing from valuation model", models.FlagMissing)
	}
	if parsed.ValuationDate == nil {
		content.AddFlag("parsed_model", "valuation date missing from valuation model", models.FlagMissing)
	}
	if !parsed.HasSummary() {
		content.AddFlag("parsed_model", "no valuation approaches found in model summary", models.FlagMissing)
	}
}

// loadEconomicOutlook fills the stored quarterly outlook. The stored text
// is never AI-generated; absence degrades to a placeholder plus flag.
func (s *Service) loadEconomicOutlook(ctx context.Context, content *models.ReportContent) {
	outlook, err := s.outlooks.GetLatest(ctx)
	if err != nil || outlook == nil || outlook.Text == "" {
		if err != nil {
			s.logger.Warn().Err(err).Msg("No stored economic outlook available")
		}
		content.EconomicOutlook = models.SectionContent{
			Content:    missingOutlookPlaceholder,
			Source:     models.SourceTemplate,
			Confidence: 0,
			Warnings:   []string{"no stored economic outlook available"},
		}
		content.AddFlag("economic_outlook", "no stored economic outlook available", models.FlagMissing)
		return
	}

	content.EconomicOutlook = models.SectionContent{
		Content:    outlook.Text,
		Source:     models.SourceStored,
		Confidence: 1.0,
	}

	s.logger.Debug().Str("quarter", outlook.Quarter).Msg("Economic outlook loaded from storage")
}

// combineContext folds the engagement transcript and per-request context
// into one prompt block.
func combineContext(engagement *models.Engagement, opts models.ReportOptions) string {
	switch {
	case engagement == nil:
		return opts.AdditionalContext
	case engagement.TranscriptText == "":
		return opts.AdditionalContext
	case opts.AdditionalContext == "":
		return engagement.TranscriptText
	default:
		return engagement.TranscriptText + "\n\n" + opts.AdditionalContext
	}
}

// researchConfidence maps the research schema's confidence vocabulary onto
// the section confidence scale.
func researchConfidence(level string) float64 {
	switch level {
	case "high":
		return 0.9
	case "medium":
		return 0.7
	case "low":
		return 0.5
	default:
		return defaultAIConfidence
	}
}
