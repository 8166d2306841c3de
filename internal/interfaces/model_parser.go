package interfaces

import (
	"context"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
)

// ModelParser extracts structured valuation data from an uploaded workbook.
// Parsing is best-effort: missing or ambiguous fields are reported through
// ParsedModel.Errors and Warnings so the pipeline can flag rather than fail.
type ModelParser interface {
	// Parse reads workbook bytes (XLSX) and returns the extracted model.
	// Returns an error only when the input cannot be opened at all.
	Parse(ctx context.Context, data []byte) (*models.ParsedModel, error)
}
