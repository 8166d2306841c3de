// -----------------------------------------------------------------------
// Document Assembler - Renders a template plus report content into the
// final markdown artifact with placeholder validation and cross-checks
// -----------------------------------------------------------------------

package assembly

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	// manualCompletionMarker visibly replaces content the pipeline could
	// not produce. Reviewers search for it before a report ships.
	manualCompletionMarker = "[*** REQUIRES MANUAL COMPLETION ***]"

	// valueTolerance is the absolute tolerance when recomputing the
	// concluded value from weighted approach values. Differences at or
	// under it are rounding noise on currency figures.
	valueTolerance = 0.50

	// approachesContentKey expands to every per-approach narrative in
	// model order.
	approachesContentKey = "valuation_approaches"

	dateLayout = "January 2, 2006"
)

// Artifact is the assembled document before rendering.
type Artifact struct {
	Title    string
	Markdown string
}

// Assembler renders templates. Stateless; one per app.
type Assembler struct {
	logger arbor.ILogger
}

// NewAssembler creates a document assembler.
func NewAssembler(logger arbor.ILogger) *Assembler {
	return &Assembler{logger: logger}
}

// Assemble walks the template sections in order and produces the markdown
// artifact. Unresolvable content degrades to visible markers and warnings;
// Assemble itself never fails.
func (a *Assembler) Assemble(tmpl *models.ReportTemplate, content *models.ReportContent, parsed *models.ParsedModel) (*Artifact, []string, []models.Flag) {
	var (
		blocks   []string
		warnings []string
		flags    []models.Flag
	)

	for _, section := range tmpl.Sections {
		switch section.Type {
		case models.SectionBoilerplate:
			blocks = append(blocks, section.Body)

		case models.SectionSubstitution:
			body, w := a.substitute(section, parsed)
			warnings = append(warnings, w...)
			blocks = append(blocks, body)

		case models.SectionGenerated:
			body, w := a.generated(section, content)
			warnings = append(warnings, w...)
			blocks = append(blocks, body)

		case models.SectionValuationTable:
			body, w, f := a.valuationTable(section, parsed)
			warnings = append(warnings, w...)
			flags = append(flags, f...)
			blocks = append(blocks, body)
		}
	}

	title := tmpl.Name
	if parsed.CompanyName != "" {
		title = fmt.Sprintf("Valuation Report - %s", parsed.CompanyName)
	}

	artifact := &Artifact{
		Title:    title,
		Markdown: strings.Join(blocks, "\n\n") + "\n",
	}

	a.logger.Debug().
		Str("template_id", tmpl.ID).
		Int("section_count", len(tmpl.Sections)).
		Int("warning_count", len(warnings)).
		Int("flag_count", len(flags)).
		Msg("Document assembled")

	return artifact, warnings, flags
}

// substitute replaces each placeholder token with its resolved field.
// Required placeholders that cannot resolve warn, naming the field; every
// unresolved token is replaced by the manual-completion marker so nothing
// half-substituted ships silently.
func (a *Assembler) substitute(section models.TemplateSection, parsed *models.ParsedModel) (string, []string) {
	body := section.Body
	var warnings []string

	for _, p := range section.Placeholders {
		value, ok := resolveField(p.Field, parsed)
		if !ok {
			if p.Required {
				warnings = append(warnings, fmt.Sprintf("section %q: required placeholder %s unresolved: %s is missing", section.Title, p.Token, p.Field))
			}
			value = manualCompletionMarker
		}
		body = strings.ReplaceAll(body, p.Token, value)
	}

	return body, warnings
}

// generated replaces the section body wholesale with assembled narrative
// content. The section heading comes from the template so generated text
// never has to carry its own.
func (a *Assembler) generated(section models.TemplateSection, content *models.ReportContent) (string, []string) {
	heading := fmt.Sprintf("## %s", section.Title)

	if section.ContentKey == approachesContentKey {
		return a.approachNarratives(heading, content)
	}

	sc, ok := content.SectionByKey(section.ContentKey)
	if !ok || sc.IsEmpty() {
		warning := fmt.Sprintf("section %q: no content available for %s", section.Title, section.ContentKey)
		return heading + "\n\n" + manualCompletionMarker, []string{warning}
	}

	return heading + "\n\n" + sc.Content, nil
}

// approachNarratives expands the per-approach sections in model order.
func (a *Assembler) approachNarratives(heading string, content *models.ReportContent) (string, []string) {
	if len(content.ApproachOrder) == 0 {
		warning := "no valuation approach narratives available"
		return heading + "\n\n" + manualCompletionMarker, []string{warning}
	}

	var warnings []string
	parts := []string{heading}

	for _, name := range content.ApproachOrder {
		sub := fmt.Sprintf("### %s", name)
		sc, ok := content.ValuationAnalysis[name]
		if !ok || sc.IsEmpty() {
			warnings = append(warnings, fmt.Sprintf("no narrative available for approach %q", name))
			parts = append(parts, sub+"\n\n"+manualCompletionMarker)
			continue
		}
		parts = append(parts, sub+"\n\n"+sc.Content)
	}

	return strings.Join(parts, "\n\n"), warnings
}

// valuationTable renders the summary table row-per-approach in supplied
// order. The totals row recomputes the concluded value; disagreement with
// the model's own figure beyond the tolerance raises a review flag citing
// both numbers, never a failure.
func (a *Assembler) valuationTable(section models.TemplateSection, parsed *models.ParsedModel) (string, []string, []models.Flag) {
	heading := fmt.Sprintf("## %s", section.Title)

	if parsed.Summary == nil || len(parsed.Summary.Approaches) == 0 {
		warning := fmt.Sprintf("section %q: valuation summary table skipped, no approaches parsed", section.Title)
		return heading + "\n\n" + manualCompletionMarker, []string{warning}, nil
	}

	var (
		b         strings.Builder
		warnings  []string
		flags     []models.Flag
		total     float64
		completed bool
	)

	b.WriteString(heading)
	b.WriteString("\n\n")
	b.WriteString("| Approach | Indicated Value | Weight | Weighted Value |\n")
	b.WriteString("|---|---|---|---|\n")

	for _, approach := range parsed.Summary.Approaches {
		indicated := ""
		weight := ""
		weighted := ""

		if approach.IndicatedValue != nil {
			indicated = formatValue(*approach.IndicatedValue)
		}
		if approach.Weight != nil {
			weight = fmt.Sprintf("%.0f%%", *approach.Weight*100)
		}
		if approach.IndicatedValue != nil && approach.Weight != nil {
			w := *approach.IndicatedValue * *approach.Weight
			weighted = formatValue(w)
			total += w
			completed = true
		} else {
			warnings = append(warnings, fmt.Sprintf("approach %q missing indicated value or weight, excluded from weighted total", approach.Name))
		}

		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", approach.Name, indicated, weight, weighted)
	}

	fmt.Fprintf(&b, "| **Concluded Value** | | | **%s** |\n", formatValue(total))

	if completed && parsed.Summary.ConcludedValue != nil {
		stated := *parsed.Summary.ConcludedValue
		if math.Abs(total-stated) > valueTolerance {
			flags = append(flags, models.Flag{
				Section: section.Title,
				Type:    models.FlagReview,
				Message: fmt.Sprintf("recomputed concluded value %s differs from model concluded value %s", formatValue(total), formatValue(stated)),
			})
		}
	}

	return b.String(), warnings, flags
}

// resolveField maps a placeholder field name onto parsed model data.
func resolveField(field string, parsed *models.ParsedModel) (string, bool) {
	switch field {
	case "company_name":
		if parsed.CompanyName == "" {
			return "", false
		}
		return parsed.CompanyName, true

	case "valuation_date":
		if parsed.ValuationDate == nil {
			return "", false
		}
		return parsed.ValuationDate.Format(dateLayout), true

	case "report_date":
		return time.Now().Format(dateLayout), true

	case "industry":
		if parsed.Industry == "" {
			return "", false
		}
		return parsed.Industry, true

	case "concluded_value":
		if parsed.Summary == nil || parsed.Summary.ConcludedValue == nil {
			return "", false
		}
		return formatValue(*parsed.Summary.ConcludedValue), true

	case "dlom":
		if parsed.DLOM == nil {
			return "", false
		}
		return fmt.Sprintf("%.0f%%", *parsed.DLOM*100), true

	default:
		return "", false
	}
}

// formatValue renders a currency figure with two decimals.
func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
