package assembly

import (
	"strings"
	"testing"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func f64(v float64) *float64 { return &v }

func substitutionTemplate() *models.ReportTemplate {
	return &models.ReportTemplate{
		ID:   "test",
		Name: "Test Template",
		Sections: []models.TemplateSection{
			{
				Title: "Cover",
				Type:  models.SectionSubstitution,
				Body:  "Report for *COMPANY dated *VALUATION_DATE.",
				Placeholders: []models.Placeholder{
					{Token: "*COMPANY", Field: "company_name", Required: true},
					{Token: "*VALUATION_DATE", Field: "valuation_date", Required: false},
				},
			},
			{
				Title: "Disclaimer",
				Type:  models.SectionBoilerplate,
				Body:  "Standard disclaimer text.",
			},
		},
	}
}

func TestSubstitutionResolvesFields(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	date := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	parsed := &models.ParsedModel{CompanyName: "Granite Holdings", ValuationDate: &date}

	artifact, warnings, flags := a.Assemble(substitutionTemplate(), &models.ReportContent{}, parsed)

	assert.Contains(t, artifact.Markdown, "Report for Granite Holdings dated June 30, 2026.")
	assert.Empty(t, warnings)
	assert.Empty(t, flags)
	assert.Equal(t, "Valuation Report - Granite Holdings", artifact.Title)
}

func TestRequiredPlaceholderMissingWarnsOnce(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	date := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	parsed := &models.ParsedModel{ValuationDate: &date} // no company name

	artifact, warnings, _ := a.Assemble(substitutionTemplate(), &models.ReportContent{}, parsed)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "company_name")
	assert.Contains(t, warnings[0], "*COMPANY")

	// The unresolved token is visibly marked, and other sections still render.
	assert.Contains(t, artifact.Markdown, manualCompletionMarker)
	assert.Contains(t, artifact.Markdown, "Standard disclaimer text.")
	assert.Contains(t, artifact.Markdown, "June 30, 2026")
}

func TestOptionalPlaceholderMissingDoesNotWarn(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	parsed := &models.ParsedModel{CompanyName: "Granite Holdings"} // no valuation date

	artifact, warnings, _ := a.Assemble(substitutionTemplate(), &models.ReportContent{}, parsed)

	assert.Empty(t, warnings)
	assert.Contains(t, artifact.Markdown, manualCompletionMarker)
}

func TestGeneratedSectionReplacedWholesale(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	tmpl := &models.ReportTemplate{
		ID:   "gen",
		Name: "Generated",
		Sections: []models.TemplateSection{
			{Title: "Company Overview", Type: models.SectionGenerated, ContentKey: "company_overview"},
		},
	}
	content := &models.ReportContent{
		CompanyOverview: models.SectionContent{Content: "Overview paragraph.", Source: models.SourceAI},
	}

	artifact, warnings, _ := a.Assemble(tmpl, content, &models.ParsedModel{})

	assert.Contains(t, artifact.Markdown, "## Company Overview")
	assert.Contains(t, artifact.Markdown, "Overview paragraph.")
	assert.Empty(t, warnings)
}

func TestGeneratedSectionAbsentGetsMarker(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	tmpl := &models.ReportTemplate{
		ID:   "gen",
		Name: "Generated",
		Sections: []models.TemplateSection{
			{Title: "Conclusion of Value", Type: models.SectionGenerated, ContentKey: "conclusion"},
		},
	}

	artifact, warnings, _ := a.Assemble(tmpl, &models.ReportContent{}, &models.ParsedModel{})

	assert.Contains(t, artifact.Markdown, manualCompletionMarker)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "conclusion")
}

func TestApproachNarrativesExpandInOrder(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	tmpl := &models.ReportTemplate{
		ID:   "gen",
		Name: "Generated",
		Sections: []models.TemplateSection{
			{Title: "Valuation Analysis", Type: models.SectionGenerated, ContentKey: "valuation_approaches"},
		},
	}
	content := &models.ReportContent{
		ApproachOrder: []string{"Income Approach", "Market Approach"},
		ValuationAnalysis: map[string]models.SectionContent{
			"Income Approach": {Content: "Income narrative."},
			"Market Approach": {Content: "Market narrative."},
		},
	}

	artifact, warnings, _ := a.Assemble(tmpl, content, &models.ParsedModel{})

	incomeIdx := strings.Index(artifact.Markdown, "### Income Approach")
	marketIdx := strings.Index(artifact.Markdown, "### Market Approach")
	require.GreaterOrEqual(t, incomeIdx, 0)
	require.GreaterOrEqual(t, marketIdx, 0)
	assert.Less(t, incomeIdx, marketIdx, "approaches must render in supplied order")
	assert.Empty(t, warnings)
}

func valuationTableTemplate() *models.ReportTemplate {
	return &models.ReportTemplate{
		ID:   "table",
		Name: "Table",
		Sections: []models.TemplateSection{
			{Title: "Valuation Summary", Type: models.SectionValuationTable},
		},
	}
}

func TestValuationTableCrossCheckFlagsMismatch(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	parsed := &models.ParsedModel{
		CompanyName: "Granite Holdings",
		Summary: &models.ValuationSummary{
			Approaches: []models.Approach{
				{Name: "A", IndicatedValue: f64(100), Weight: f64(0.4)},
				{Name: "B", IndicatedValue: f64(50), Weight: f64(0.6)},
			},
			ConcludedValue: f64(75),
		},
	}

	artifact, _, flags := a.Assemble(valuationTableTemplate(), &models.ReportContent{}, parsed)

	// 100*0.4 + 50*0.6 = 70; the model states 75.
	require.Len(t, flags, 1)
	assert.Equal(t, models.FlagReview, flags[0].Type)
	assert.Contains(t, flags[0].Message, "70")
	assert.Contains(t, flags[0].Message, "75")

	assert.Contains(t, artifact.Markdown, "| A | 100.00 | 40% | 40.00 |")
	assert.Contains(t, artifact.Markdown, "| B | 50.00 | 60% | 30.00 |")
	assert.Contains(t, artifact.Markdown, "70.00")
}

func TestValuationTableWithinToleranceNoFlag(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	parsed := &models.ParsedModel{
		Summary: &models.ValuationSummary{
			Approaches: []models.Approach{
				{Name: "A", IndicatedValue: f64(100), Weight: f64(0.4)},
				{Name: "B", IndicatedValue: f64(50), Weight: f64(0.6)},
			},
			ConcludedValue: f64(70.25),
		},
	}

	_, _, flags := a.Assemble(valuationTableTemplate(), &models.ReportContent{}, parsed)

	assert.Empty(t, flags, "differences within tolerance are rounding noise")
}

func TestValuationTableIncompleteApproachWarns(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	parsed := &models.ParsedModel{
		Summary: &models.ValuationSummary{
			Approaches: []models.Approach{
				{Name: "A", IndicatedValue: f64(100), Weight: f64(1.0)},
				{Name: "B"}, // no figures in the workbook
			},
			ConcludedValue: f64(100),
		},
	}

	artifact, warnings, flags := a.Assemble(valuationTableTemplate(), &models.ReportContent{}, parsed)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `approach "B"`)
	assert.Empty(t, flags)
	assert.Contains(t, artifact.Markdown, "| B |  |  |  |")
}

func TestValuationTableNoApproachesGetsMarker(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	artifact, warnings, flags := a.Assemble(valuationTableTemplate(), &models.ReportContent{}, &models.ParsedModel{})

	assert.Contains(t, artifact.Markdown, manualCompletionMarker)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no approaches parsed")
	assert.Empty(t, flags)
}
