package narrative

import (
	"fmt"
	"strings"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
)

const analystSystemPrompt = "You are a professional business valuation analyst writing sections of a " +
	"formal valuation report. Write in clear, objective prose suitable for inclusion in a " +
	"report delivered to a client and potentially reviewed by courts, the IRS, or auditors. " +
	"Do not invent specific financial figures that were not provided. Use markdown formatting " +
	"with no top-level heading; the report template supplies section headings."

// companyOverviewPrompt grounds the overview section in parsed model data,
// research results, and any caller-supplied context.
func companyOverviewPrompt(companyName string, research *interfaces.CompanyResearch, contextText string) string {
	var b strings.Builder

	name := companyName
	if name == "" {
		name = "the subject company"
	}

	fmt.Fprintf(&b, "Write the Company Overview section of a valuation report for %s.\n\n", name)

	if research != nil {
		b.WriteString("Background research:\n")
		fmt.Fprintf(&b, "- Overview: %s\n", research.Overview)
		if research.History != "" {
			fmt.Fprintf(&b, "- History: %s\n", research.History)
		}
		if len(research.Products) > 0 {
			fmt.Fprintf(&b, "- Products and services: %s\n", strings.Join(research.Products, "; "))
		}
		if len(research.Competitors) > 0 {
			fmt.Fprintf(&b, "- Competitors: %s\n", strings.Join(research.Competitors, "; "))
		}
		if len(research.KeyRisks) > 0 {
			fmt.Fprintf(&b, "- Key risks: %s\n", strings.Join(research.KeyRisks, "; "))
		}
		b.WriteString("\n")
	}

	if contextText != "" {
		fmt.Fprintf(&b, "Additional context provided by the engagement team:\n%s\n\n", contextText)
	}

	b.WriteString("Cover the company's business, history, operations, and competitive position " +
		"in three to five paragraphs. State only facts supported by the material above; where " +
		"background is thin, keep the section general rather than speculating.")

	return b.String()
}

// industryOutlookPrompt grounds the industry section in research when the
// research stage ran, else asks for a general treatment.
func industryOutlookPrompt(industry string, research *interfaces.IndustryResearch) string {
	var b strings.Builder

	subject := industry
	if subject == "" {
		subject = "the subject company's industry"
	}

	fmt.Fprintf(&b, "Write the Industry Outlook section of a valuation report covering %s.\n\n", subject)

	if research != nil {
		b.WriteString("Research findings:\n")
		fmt.Fprintf(&b, "- Outlook: %s\n", research.Outlook)
		if len(research.GrowthDrivers) > 0 {
			fmt.Fprintf(&b, "- Growth drivers: %s\n", strings.Join(research.GrowthDrivers, "; "))
		}
		if len(research.Headwinds) > 0 {
			fmt.Fprintf(&b, "- Headwinds: %s\n", strings.Join(research.Headwinds, "; "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Discuss current conditions, growth expectations, and risks relevant to valuing " +
		"a company in this industry, in two to four paragraphs.")

	return b.String()
}

// approachPrompt asks for a narrative explaining one valuation approach and
// its result. Figures come only from the parsed model.
func approachPrompt(approach models.Approach, parsed *models.ParsedModel) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write the valuation report narrative for the %s.\n\n", approach.Name)
	b.WriteString("Figures from the valuation model:\n")

	if approach.IndicatedValue != nil {
		fmt.Fprintf(&b, "- Indicated value: %.2f\n", *approach.IndicatedValue)
	} else {
		b.WriteString("- Indicated value: not stated in the model\n")
	}
	if approach.Weight != nil {
		fmt.Fprintf(&b, "- Weight assigned in the conclusion of value: %.0f%%\n", *approach.Weight*100)
	}
	if parsed.DLOM != nil {
		fmt.Fprintf(&b, "- Discount for lack of marketability applied in the model: %.0f%%\n", *parsed.DLOM*100)
	}

	b.WriteString("\nExplain what this approach measures, how it was applied, and what the " +
		"indicated value represents, in two to three paragraphs. Reference only the figures " +
		"listed above.")

	return b.String()
}

// conclusionPrompt asks for the conclusion-of-value narrative tying the
// weighted approaches together.
func conclusionPrompt(parsed *models.ParsedModel) string {
	var b strings.Builder

	name := parsed.CompanyName
	if name == "" {
		name = "the subject company"
	}

	fmt.Fprintf(&b, "Write the Conclusion of Value section of a valuation report for %s.\n\n", name)

	if parsed.HasSummary() {
		b.WriteString("Approaches and weights from the valuation model:\n")
		for _, a := range parsed.Summary.Approaches {
			indicated := "not stated"
			if a.IndicatedValue != nil {
				indicated = fmt.Sprintf("%.2f", *a.IndicatedValue)
			}
			weight := "not stated"
			if a.Weight != nil {
				weight = fmt.Sprintf("%.0f%%", *a.Weight*100)
			}
			fmt.Fprintf(&b, "- %s: indicated value %s, weight %s\n", a.Name, indicated, weight)
		}
		if parsed.Summary.ConcludedValue != nil {
			fmt.Fprintf(&b, "- Concluded value per the model: %.2f\n", *parsed.Summary.ConcludedValue)
		}
		b.WriteString("\n")
	}

	b.WriteString("Summarize how the approaches were weighted to reach the concluded value, in " +
		"one to two paragraphs. Reference only the figures listed above.")

	return b.String()
}
