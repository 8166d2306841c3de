package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
)

// ErrNotFound is returned by record stores when no row matches. Callers
// branch with errors.Is; handlers map it to 404.
var ErrNotFound = errors.New("record not found")

// ErrKeyNotFound is the key/value store's miss sentinel. Separate from
// ErrNotFound because config resolution treats a missing key as a normal
// fallback, not a storage problem.
var ErrKeyNotFound = errors.New("key not found")

// EngagementStorage - interface for engagement record persistence
type EngagementStorage interface {
	Store(ctx context.Context, engagement *models.Engagement) error
	Get(ctx context.Context, id string) (*models.Engagement, error)
	List(ctx context.Context) ([]*models.Engagement, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// ReportStorage - interface for generated report records
type ReportStorage interface {
	Store(ctx context.Context, report *models.GeneratedReport) error
	Get(ctx context.Context, id string) (*models.GeneratedReport, error)
	GetByEngagement(ctx context.Context, engagementID string) ([]*models.GeneratedReport, error)
	GetLatestByEngagement(ctx context.Context, engagementID string) (*models.GeneratedReport, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// OutlookStorage - interface for the stored quarterly economic outlook
type OutlookStorage interface {
	Store(ctx context.Context, outlook *models.EconomicOutlook) error
	Get(ctx context.Context, quarter string) (*models.EconomicOutlook, error)
	// GetLatest returns the most recently updated outlook, or ErrNotFound
	// when none has been stored.
	GetLatest(ctx context.Context) (*models.EconomicOutlook, error)
}

// KeyValuePair is a stored setting with its audit timestamps.
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage holds operator-managed settings, primarily API keys
// referenced from config as {key-name} tokens.
type KeyValueStorage interface {
	// Get retrieves a value by key; returns ErrKeyNotFound on miss.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key/value pair with optional description.
	Set(ctx context.Context, key string, value string, description string) error

	// Delete removes a key/value pair; returns ErrKeyNotFound on miss.
	Delete(ctx context.Context, key string) error

	// List returns all pairs ordered by updated_at descending.
	List(ctx context.Context) ([]KeyValuePair, error)

	// GetAll returns every pair as a map for config token replacement.
	GetAll(ctx context.Context) (map[string]string, error)
}

// StorageManager provides access to all storage services
type StorageManager interface {
	Engagements() EngagementStorage
	Reports() ReportStorage
	Outlooks() OutlookStorage
	KeyValue() KeyValueStorage

	// Close closes the underlying database
	Close() error
}
