package interfaces

import (
	"context"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
)

// TemplateService loads report templates from definition files.
type TemplateService interface {
	// Get returns the template with the given ID, or an error when no
	// definition file provides it.
	Get(ctx context.Context, id string) (*models.ReportTemplate, error)

	// List returns all loaded templates.
	List(ctx context.Context) ([]*models.ReportTemplate, error)

	// Reload rescans the template directory.
	Reload(ctx context.Context) error
}
