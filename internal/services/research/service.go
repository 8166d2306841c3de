// -----------------------------------------------------------------------
// Research Service - Structured company and industry research
// -----------------------------------------------------------------------

package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/generation"
)

const companySystemPrompt = `You are a business research analyst preparing background material for a valuation report. Be factual and conservative. Never invent figures, dates, or sources. When you are not certain, say less and lower your confidence.`

const industrySystemPrompt = `You are an industry analyst preparing outlook material for a valuation report. Describe conditions and trends at the industry level, not for any single company. Never invent statistics or sources.`

// Service implements interfaces.ResearchService on top of structured
// generation. Responses are schema-validated before they reach the
// narrative stage.
type Service struct {
	gen          interfaces.GenerationService
	validate     *validator.Validate
	logger       arbor.ILogger
	maxCitations int
}

var _ interfaces.ResearchService = (*Service)(nil)

// NewService creates a research service.
func NewService(gen interfaces.GenerationService, cfg *common.ResearchConfig, logger arbor.ILogger) *Service {
	return &Service{
		gen:          gen,
		validate:     validator.New(),
		logger:       logger,
		maxCitations: cfg.MaxCitations,
	}
}

// ResearchCompany gathers background on the subject company.
func (s *Service) ResearchCompany(ctx context.Context, companyName, contextText string) (*interfaces.CompanyResearch, error) {
	if strings.TrimSpace(companyName) == "" {
		return nil, fmt.Errorf("company name is required for research")
	}

	start := time.Now()
	prompt := companyResearchPrompt(companyName, contextText)

	var research interfaces.CompanyResearch
	if err := generation.GenerateStructured(ctx, s.gen, prompt, companySystemPrompt, &research); err != nil {
		return nil, err
	}

	if err := s.validate.Struct(&research); err != nil {
		return nil, fmt.Errorf("company research response failed validation: %w", err)
	}

	if len(research.SourcesCited) > s.maxCitations {
		research.SourcesCited = research.SourcesCited[:s.maxCitations]
	}

	s.logger.Debug().
		Str("company", companyName).
		Str("confidence", research.ConfidenceStr).
		Int("sources", len(research.SourcesCited)).
		Dur("duration", time.Since(start)).
		Msg("Company research complete")

	return &research, nil
}

// ResearchIndustry gathers an outlook for the subject industry.
func (s *Service) ResearchIndustry(ctx context.Context, industry string) (*interfaces.IndustryResearch, error) {
	if strings.TrimSpace(industry) == "" {
		return nil, fmt.Errorf("industry is required for research")
	}

	start := time.Now()
	prompt := industryResearchPrompt(industry)

	var research interfaces.IndustryResearch
	if err := generation.GenerateStructured(ctx, s.gen, prompt, industrySystemPrompt, &research); err != nil {
		return nil, err
	}

	if err := s.validate.Struct(&research); err != nil {
		return nil, fmt.Errorf("industry research response failed validation: %w", err)
	}

	if len(research.Citations) > s.maxCitations {
		research.Citations = research.Citations[:s.maxCitations]
	}

	s.logger.Debug().
		Str("industry", industry).
		Str("confidence", research.ConfidenceStr).
		Int("citations", len(research.Citations)).
		Dur("duration", time.Since(start)).
		Msg("Industry research complete")

	return &research, nil
}

// companyResearchPrompt builds the company research request.
func companyResearchPrompt(companyName, contextText string) string {
	prompt := fmt.Sprintf(`Research the company %q for a business valuation report.

Cover:
- What the company does and the markets it serves
- Company history and major milestones, if known
- Principal products or services
- Notable competitors
- Key business risks relevant to a valuation

Output Format (JSON only, no markdown fences):
{
  "overview": "2-3 paragraph company overview",
  "history": "brief history, empty string if unknown",
  "products": ["product or service", ...],
  "competitors": ["competitor", ...],
  "key_risks": ["risk", ...],
  "sources_cited": ["source", ...],
  "confidence": "high|medium|low"
}`, companyName)

	if strings.TrimSpace(contextText) != "" {
		prompt += fmt.Sprintf("\n\nAdditional context provided by the engagement team:\n%s", contextText)
	}
	return prompt
}

// industryResearchPrompt builds the industry outlook request.
func industryResearchPrompt(industry string) string {
	return fmt.Sprintf(`Research the current outlook for the %q industry for a business valuation report.

Cover:
- Overall industry conditions and near-term outlook
- Growth drivers
- Headwinds and structural risks

Output Format (JSON only, no markdown fences):
{
  "outlook": "2-3 paragraph industry outlook",
  "growth_drivers": ["driver", ...],
  "headwinds": ["headwind", ...],
  "citations": ["source", ...],
  "confidence": "high|medium|low"
}`, industry)
}
