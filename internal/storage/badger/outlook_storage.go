package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// OutlookStorage implements the OutlookStorage interface for Badger.
// Outlooks are keyed by quarter ("2026Q3"); quarters are normalized to
// uppercase so lookups are case-insensitive.
type OutlookStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewOutlookStorage creates a new OutlookStorage instance
func NewOutlookStorage(db *BadgerDB, logger arbor.ILogger) interfaces.OutlookStorage {
	return &OutlookStorage{
		db:     db,
		logger: logger,
	}
}

func normalizeQuarter(quarter string) string {
	return strings.ToUpper(strings.TrimSpace(quarter))
}

func (s *OutlookStorage) Store(ctx context.Context, outlook *models.EconomicOutlook) error {
	if outlook.Quarter == "" {
		return fmt.Errorf("outlook quarter is required")
	}

	outlook.Quarter = normalizeQuarter(outlook.Quarter)
	outlook.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(outlook.Quarter, outlook); err != nil {
		return fmt.Errorf("failed to save economic outlook: %w", err)
	}
	return nil
}

func (s *OutlookStorage) Get(ctx context.Context, quarter string) (*models.EconomicOutlook, error) {
	var outlook models.EconomicOutlook
	if err := s.db.Store().Get(normalizeQuarter(quarter), &outlook); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("economic outlook %s: %w", quarter, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get economic outlook: %w", err)
	}
	return &outlook, nil
}

func (s *OutlookStorage) GetLatest(ctx context.Context) (*models.EconomicOutlook, error) {
	var outlooks []models.EconomicOutlook
	err := s.db.Store().Find(&outlooks, badgerhold.Where("Quarter").Ne("").SortBy("UpdatedAt").Reverse().Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest economic outlook: %w", err)
	}
	if len(outlooks) == 0 {
		return nil, fmt.Errorf("no economic outlook stored: %w", interfaces.ErrNotFound)
	}
	return &outlooks[0], nil
}
