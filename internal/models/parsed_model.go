// -----------------------------------------------------------------------
// Parsed Model - Structured extraction from an uploaded valuation workbook
// -----------------------------------------------------------------------

package models

import (
	"strings"
	"time"
)

// Approach is one valuation approach row from the model's summary sheet.
// IndicatedValue and Weight are nil when the workbook leaves them blank;
// downstream consumers flag rather than fail on missing figures.
type Approach struct {
	Name           string   `json:"name"`
	IndicatedValue *float64 `json:"indicated_value,omitempty"`
	Weight         *float64 `json:"weight,omitempty"` // fraction 0..1
}

// ValuationSummary holds the conclusion-of-value figures extracted from
// the workbook summary sheet.
type ValuationSummary struct {
	Approaches     []Approach `json:"approaches"`
	ConcludedValue *float64   `json:"concluded_value,omitempty"`
}

// Exhibit is one workbook sheet carried through to the report appendix.
type Exhibit struct {
	SheetName string     `json:"sheet_name"`
	Rows      [][]string `json:"rows"`
	Notes     []string   `json:"notes,omitempty"`
}

// ParsedModel is the immutable result of parsing an uploaded valuation
// model. It is produced once per job and never modified afterwards;
// missing fields surface as narrative flags, not parse errors.
type ParsedModel struct {
	CompanyName   string     `json:"company_name,omitempty"`
	ValuationDate *time.Time `json:"valuation_date,omitempty"`
	Industry      string     `json:"industry,omitempty"`

	Summary  *ValuationSummary `json:"summary,omitempty"`
	DLOM     *float64          `json:"dlom,omitempty"` // discount for lack of marketability, fraction 0..1
	Exhibits []Exhibit         `json:"exhibits,omitempty"`

	// Errors are non-fatal extraction problems (unreadable cells, ambiguous
	// labels). Warnings are softer notices. Neither aborts the pipeline.
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// HasSummary reports whether the parser located a usable summary sheet.
func (m *ParsedModel) HasSummary() bool {
	return m.Summary != nil && len(m.Summary.Approaches) > 0
}

// ApproachNames returns approach names in workbook order.
func (m *ParsedModel) ApproachNames() []string {
	if m.Summary == nil {
		return nil
	}
	names := make([]string, 0, len(m.Summary.Approaches))
	for _, a := range m.Summary.Approaches {
		names = append(names, a.Name)
	}
	return names
}

// FindApproach returns the approach matching name case-insensitively.
func (m *ParsedModel) FindApproach(name string) (Approach, bool) {
	if m.Summary == nil {
		return Approach{}, false
	}
	for _, a := range m.Summary.Approaches {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Approach{}, false
}
