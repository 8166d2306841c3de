package interfaces

import (
	"context"
)

// CompanyResearch is the structured result of company background research.
type CompanyResearch struct {
	Overview      string   `json:"overview" validate:"required"`
	History       string   `json:"history,omitempty"`
	Products      []string `json:"products,omitempty"`
	Competitors   []string `json:"competitors,omitempty"`
	KeyRisks      []string `json:"key_risks,omitempty"`
	SourcesCited  []string `json:"sources_cited,omitempty"`
	ConfidenceStr string   `json:"confidence" validate:"omitempty,oneof=high medium low"`
}

// IndustryResearch is the structured result of industry outlook research.
type IndustryResearch struct {
	Outlook       string   `json:"outlook" validate:"required"`
	GrowthDrivers []string `json:"growth_drivers,omitempty"`
	Headwinds     []string `json:"headwinds,omitempty"`
	Citations     []string `json:"citations,omitempty"`
	ConfidenceStr string   `json:"confidence" validate:"omitempty,oneof=high medium low"`
}

// ResearchService gathers supplementary narrative inputs through the
// generation client. Failures surface the generation error unchanged so
// the orchestrator applies one error policy for all provider calls.
type ResearchService interface {
	// ResearchCompany gathers background on the subject company. The
	// context string carries caller-supplied notes (transcripts, filings).
	ResearchCompany(ctx context.Context, companyName, contextText string) (*CompanyResearch, error)

	// ResearchIndustry gathers an outlook for the subject industry.
	ResearchIndustry(ctx context.Context, industry string) (*IndustryResearch, error)
}
