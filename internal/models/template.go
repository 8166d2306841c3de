// -----------------------------------------------------------------------
// Report Template - Section layout loaded from TOML definition files
// -----------------------------------------------------------------------

package models

import "fmt"

// SectionType determines how the document assembler fills a template section.
type SectionType string

const (
	// SectionBoilerplate passes the body through unchanged.
	SectionBoilerplate SectionType = "boilerplate"
	// SectionSubstitution replaces *TOKEN placeholders in the body with
	// engagement and model fields.
	SectionSubstitution SectionType = "substitution"
	// SectionGenerated replaces the whole body with assembled narrative
	// content addressed by ContentKey.
	SectionGenerated SectionType = "generated"
	// SectionValuationTable renders the valuation summary table from the
	// parsed model.
	SectionValuationTable SectionType = "valuation_table"
)

// Placeholder binds a *TOKEN in a substitution section to a named field.
// Required placeholders that cannot be resolved produce warnings, never
// hard failures.
type Placeholder struct {
	Token    string `json:"token" toml:"token"`
	Field    string `json:"field" toml:"field"`
	Required bool   `json:"required" toml:"required"`
}

// TemplateSection is one section of a report template.
type TemplateSection struct {
	Title        string        `json:"title" toml:"title"`
	Type         SectionType   `json:"type" toml:"type"`
	Body         string        `json:"body,omitempty" toml:"body"`
	ContentKey   string        `json:"content_key,omitempty" toml:"content_key"`
	Placeholders []Placeholder `json:"placeholders,omitempty" toml:"placeholders"`
}

// ReportTemplate is a full document layout.
type ReportTemplate struct {
	ID       string            `json:"id" toml:"id"`
	Name     string            `json:"name" toml:"name"`
	Sections []TemplateSection `json:"sections" toml:"sections"`
}

// Validate checks structural requirements before a template is used.
func (t *ReportTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template %s has no sections", t.ID)
	}
	for i, s := range t.Sections {
		switch s.Type {
		case SectionBoilerplate, SectionSubstitution, SectionGenerated, SectionValuationTable:
		default:
			return fmt.Errorf("template %s section %d has unknown type %q", t.ID, i, s.Type)
		}
		if s.Type == SectionGenerated && s.ContentKey == "" {
			return fmt.Errorf("template %s section %q requires content_key", t.ID, s.Title)
		}
	}
	return nil
}

// RequiredPlaceholders returns every placeholder marked required across
// all substitution sections.
func (t *ReportTemplate) RequiredPlaceholders() []Placeholder {
	var required []Placeholder
	for _, s := range t.Sections {
		if s.Type != SectionSubstitution {
			continue
		}
		for _, p := range s.Placeholders {
			if p.Required {
				required = append(required, p)
			}
		}
	}
	return required
}
