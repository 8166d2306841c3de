package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// fakeGeneration scripts Generate responses by prompt substring.
type fakeGeneration struct {
	failWhenPromptContains string
	failErr                error
}

func (f *fakeGeneration) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.failWhenPromptContains != "" && strings.Contains(prompt, f.failWhenPromptContains) {
		return "", f.failErr
	}
	switch {
	case strings.Contains(prompt, "Company Overview"):
		return "Generated company overview.", nil
	case strings.Contains(prompt, "Industry Outlook"):
		return "Generated industry outlook.", nil
	case strings.Contains(prompt, "Conclusion of Value"):
		return "Generated conclusion.", nil
	default:
		return "Generated approach narrative.", nil
	}
}

func (f *fakeGeneration) GenerateFromDocument(ctx context.Context, document []byte, systemPrompt, prompt string) (string, error) {
	return "", errors.New("not implemented")
}
func (f *fakeGeneration) Provider() string                     { return "fake" }
func (f *fakeGeneration) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeGeneration) Close() error                          { return nil }

// fakeOutlooks serves a scripted economic outlook.
type fakeOutlooks struct {
	outlook *models.EconomicOutlook
	err     error
}

func (f *fakeOutlooks) Store(ctx context.Context, outlook *models.EconomicOutlook) error { return nil }
func (f *fakeOutlooks) Get(ctx context.Context, quarter string) (*models.EconomicOutlook, error) {
	return f.outlook, f.err
}
func (f *fakeOutlooks) GetLatest(ctx context.Context) (*models.EconomicOutlook, error) {
	return f.outlook, f.err
}

func f64(v float64) *float64 { return &v }

func testParsedModel() *models.ParsedModel {
	date := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	return &models.ParsedModel{
		CompanyName:   "Meridian Fabrication LLC",
		ValuationDate: &date,
		Industry:      "precision metal fabrication",
		Summary: &models.ValuationSummary{
			Approaches: []models.Approach{
				{Name: "Income Approach", IndicatedValue: f64(4200000), Weight: f64(0.6)},
				{Name: "Market Approach", IndicatedValue: f64(3800000), Weight: f64(0.4)},
			},
			ConcludedValue: f64(4040000),
		},
	}
}

func testInput(parsed *models.ParsedModel, opts models.ReportOptions) Input {
	return Input{
		Engagement: &models.Engagement{ID: "eng_1", CompanyName: parsed.CompanyName},
		Parsed:     parsed,
		Options:    opts,
	}
}

func TestBuildAssemblesAllSections(t *testing.T) {
	gen := &fakeGeneration{}
	outlooks := &fakeOutlooks{outlook: &models.EconomicOutlook{Quarter: "2026Q2", Text: "Stored outlook text."}}
	svc := NewService(gen, outlooks, 2, arbor.NewLogger())

	content, err := svc.Build(context.Background(), testInput(testParsedModel(), models.DefaultReportOptions()))
	require.NoError(t, err)

	assert.Equal(t, "Generated company overview.", content.CompanyOverview.Content)
	assert.Equal(t, models.SourceAI, content.CompanyOverview.Source)

	assert.Equal(t, "Stored outlook text.", content.EconomicOutlook.Content)
	assert.Equal(t, models.SourceStored, content.EconomicOutlook.Source)
	assert.Equal(t, 1.0, content.EconomicOutlook.Confidence)

	require.Equal(t, []string{"Income Approach", "Market Approach"}, content.ApproachOrder)
	for _, name := range content.ApproachOrder {
		section, ok := content.ValuationAnalysis[name]
		require.True(t, ok, "missing approach section %s", name)
		assert.Equal(t, models.SourceAI, section.Source)
		assert.NotEmpty(t, section.Content)
	}

	assert.Equal(t, "Generated conclusion.", content.Conclusion.Content)
	assert.Empty(t, content.Flags)
	assert.Empty(t, content.Warnings)
}

func TestBuildFlagsMissingModelFields(t *testing.T) {
	gen := &fakeGeneration{}
	outlooks := &fakeOutlooks{outlook: &models.EconomicOutlook{Quarter: "2026Q2", Text: "Outlook."}}
	svc := NewService(gen, outlooks, 2, arbor.NewLogger())

	parsed := &models.ParsedModel{} // nothing extracted
	content, err := svc.Build(context.Background(), testInput(parsed, models.DefaultReportOptions()))
	require.NoError(t, err)

	var missing []string
	for _, flag := range content.Flags {
		if flag.Type == models.FlagMissing {
			missing = append(missing, flag.Message)
		}
	}
	require.Len(t, missing, 3)
	assert.Contains(t, missing[0], "company name")
	assert.Contains(t, missing[1], "valuation date")
	assert.Contains(t, missing[2], "approaches")

	// Generation still produced the static sections.
	assert.NotEmpty(t, content.CompanyOverview.Content)
	assert.Empty(t, content.ApproachOrder)
}

func TestBuildSkipsFailedSectionWithPlaceholder(t *testing.T) {
	gen := &fakeGeneration{
		failWhenPromptContains: "Industry Outlook",
		failErr:                errors.New("rate_limit: too many requests"),
	}
	outlooks := &fakeOutlooks{outlook: &models.EconomicOutlook{Quarter: "2026Q2", Text: "Outlook."}}
	svc := NewService(gen, outlooks, 2, arbor.NewLogger())

	opts := models.DefaultReportOptions()
	opts.SkipFailedSections = true

	content, err := svc.Build(context.Background(), testInput(testParsedModel(), opts))
	require.NoError(t, err)

	assert.Equal(t, failedSectionPlaceholder, content.IndustryOutlook.Content)
	assert.Equal(t, models.SourceTemplate, content.IndustryOutlook.Source)

	require.NotEmpty(t, content.Warnings)
	assert.Contains(t, content.Warnings[0], "industry_outlook generation failed")

	var errorFlags []models.Flag
	for _, flag := range content.Flags {
		if flag.Type == models.FlagError {
			errorFlags = append(errorFlags, flag)
		}
	}
	require.Len(t, errorFlags, 1)
	assert.Equal(t, "industry_outlook", errorFlags[0].Section)

	// Other sections still rendered.
	assert.Equal(t, "Generated company overview.", content.CompanyOverview.Content)
	assert.Equal(t, "Generated conclusion.", content.Conclusion.Content)
}

func TestBuildPropagatesFailureWhenNotSkipping(t *testing.T) {
	gen := &fakeGeneration{
		failWhenPromptContains: "Company Overview",
		failErr:                errors.New("authentication failed"),
	}
	outlooks := &fakeOutlooks{outlook: &models.EconomicOutlook{Quarter: "2026Q2", Text: "Outlook."}}
	svc := NewService(gen, outlooks, 2, arbor.NewLogger())

	opts := models.DefaultReportOptions()
	opts.SkipFailedSections = false

	_, err := svc.Build(context.Background(), testInput(testParsedModel(), opts))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company_overview")
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestBuildMissingOutlookDegradesToPlaceholder(t *testing.T) {
	gen := &fakeGeneration{}
	outlooks := &fakeOutlooks{err: errors.New("not found")}
	svc := NewService(gen, outlooks, 2, arbor.NewLogger())

	content, err := svc.Build(context.Background(), testInput(testParsedModel(), models.DefaultReportOptions()))
	require.NoError(t, err)

	assert.Equal(t, missingOutlookPlaceholder, content.EconomicOutlook.Content)
	assert.Equal(t, models.SourceTemplate, content.EconomicOutlook.Source)

	var found bool
	for _, flag := range content.Flags {
		if flag.Section == "economic_outlook" && flag.Type == models.FlagMissing {
			found = true
		}
	}
	assert.True(t, found, "expected missing flag for economic outlook")
	assert.Contains(t, content.Warnings, "no stored economic outlook available")
}

func TestBuildAppliesResearchConfidenceAndCitations(t *testing.T) {
	gen := &fakeGeneration{}
	outlooks := &fakeOutlooks{outlook: &models.EconomicOutlook{Quarter: "2026Q2", Text: "Outlook."}}
	svc := NewService(gen, outlooks, 2, arbor.NewLogger())

	in := testInput(testParsedModel(), models.DefaultReportOptions())
	in.CompanyResearch = &interfaces.CompanyResearch{Overview: "Research overview.", ConfidenceStr: "high"}
	in.IndustryResearch = &interfaces.IndustryResearch{
		Outlook:       "Research outlook.",
		ConfidenceStr: "low",
		Citations:     []string{"Industry Survey 2026"},
	}

	content, err := svc.Build(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 0.9, content.CompanyOverview.Confidence)
	assert.Equal(t, 0.5, content.IndustryOutlook.Confidence)
	assert.Equal(t, []string{"Industry Survey 2026"}, content.IndustryCitations)
}
