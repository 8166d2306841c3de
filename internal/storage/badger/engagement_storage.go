package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// EngagementStorage implements the EngagementStorage interface for Badger
type EngagementStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEngagementStorage creates a new EngagementStorage instance
func NewEngagementStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EngagementStorage {
	return &EngagementStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EngagementStorage) Store(ctx context.Context, engagement *models.Engagement) error {
	if engagement.ID == "" {
		return fmt.Errorf("engagement ID is required")
	}

	now := time.Now()
	if engagement.CreatedAt.IsZero() {
		engagement.CreatedAt = now
	}
	engagement.UpdatedAt = now

	if err := s.db.Store().Upsert(engagement.ID, engagement); err != nil {
		return fmt.Errorf("failed to save engagement: %w", err)
	}
	return nil
}

func (s *EngagementStorage) Get(ctx context.Context, id string) (*models.Engagement, error) {
	var engagement models.Engagement
	if err := s.db.Store().Get(id, &engagement); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("engagement %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get engagement: %w", err)
	}
	return &engagement, nil
}

func (s *EngagementStorage) List(ctx context.Context) ([]*models.Engagement, error) {
	var engagements []models.Engagement
	err := s.db.Store().Find(&engagements, badgerhold.Where("ID").Ne("").SortBy("UpdatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list engagements: %w", err)
	}

	result := make([]*models.Engagement, len(engagements))
	for i := range engagements {
		result[i] = &engagements[i]
	}
	return result, nil
}

func (s *EngagementStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Engagement{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("engagement %s: %w", id, interfaces.ErrNotFound)
		}
		return fmt.Errorf("failed to delete engagement: %w", err)
	}
	return nil
}

func (s *EngagementStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Engagement{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count engagements: %w", err)
	}
	return int(count), nil
}
