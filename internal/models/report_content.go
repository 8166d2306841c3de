// -----------------------------------------------------------------------
// Report Content - Assembled narrative sections with provenance and flags
// -----------------------------------------------------------------------

package models

import "time"

// ContentSource identifies where a section's text came from.
type ContentSource string

const (
	SourceAI       ContentSource = "ai"       // generated by the model provider
	SourceTemplate ContentSource = "template" // boilerplate or placeholder text
	SourceStored   ContentSource = "stored"   // retrieved from storage (economic outlook)
	SourceManual   ContentSource = "manual"   // supplied by the caller
)

// FlagType classifies reviewer-facing issues attached to report content.
type FlagType string

const (
	FlagMissing   FlagType = "missing"   // an expected input was absent
	FlagUncertain FlagType = "uncertain" // generated content the model marked low-confidence
	FlagReview    FlagType = "review"    // numbers need human verification
	FlagError     FlagType = "error"     // a section failed and was replaced by a placeholder
)

// Flag records a non-fatal issue for human review. Flags never abort the
// pipeline; they travel with the content into the saved report record.
type Flag struct {
	Section string   `json:"section"`
	Message string   `json:"message"`
	Type    FlagType `json:"type"`
}

// SectionContent is one narrative section with provenance. Confidence is
// 1.0 for stored and template content; AI sections carry the provider's
// self-reported confidence when available, else a configured default.
type SectionContent struct {
	Content    string        `json:"content"`
	Source     ContentSource `json:"source"`
	Confidence float64       `json:"confidence"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// IsEmpty reports whether the section holds no usable text.
func (s SectionContent) IsEmpty() bool {
	return s.Content == ""
}

// ReportContent is the full narrative tree the document assembler consumes.
// Built once by the narrative assembler; read-only afterwards.
type ReportContent struct {
	CompanyOverview SectionContent `json:"company_overview"`
	IndustryOutlook SectionContent `json:"industry_outlook"`
	EconomicOutlook SectionContent `json:"economic_outlook"`
	Conclusion      SectionContent `json:"conclusion"`

	// ValuationAnalysis keys are approach names from the parsed model,
	// one narrative per approach. ApproachOrder preserves workbook order
	// for deterministic document assembly.
	ValuationAnalysis map[string]SectionContent `json:"valuation_analysis"`
	ApproachOrder     []string                  `json:"approach_order"`

	IndustryCitations []string `json:"industry_citations,omitempty"`

	Flags    []Flag   `json:"flags,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	GeneratedAt        time.Time     `json:"generated_at"`
	GenerationDuration time.Duration `json:"generation_duration"`
}

// AddFlag appends a reviewer-facing flag.
func (r *ReportContent) AddFlag(section, message string, flagType FlagType) {
	r.Flags = append(r.Flags, Flag{Section: section, Message: message, Type: flagType})
}

// AddWarning appends a non-fatal warning.
func (r *ReportContent) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// SectionByKey resolves a template content key to its section. Valuation
// approach sections are addressed as "valuation:<approach name>".
func (r *ReportContent) SectionByKey(key string) (SectionContent, bool) {
	switch key {
	case "company_overview":
		return r.CompanyOverview, true
	case "industry_outlook":
		return r.IndustryOutlook, true
	case "economic_outlook":
		return r.EconomicOutlook, true
	case "conclusion":
		return r.Conclusion, true
	}
	const prefix = "valuation:"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		section, ok := r.ValuationAnalysis[key[len(prefix):]]
		return section, ok
	}
	return SectionContent{}, false
}
