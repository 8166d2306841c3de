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

// ReportStorage implements the ReportStorage interface for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) Store(ctx context.Context, report *models.GeneratedReport) error {
	if report.ID == "" {
		return fmt.Errorf("report ID is required")
	}
	if report.EngagementID == "" {
		return fmt.Errorf("report engagement ID is required")
	}

	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(report.ID, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *ReportStorage) Get(ctx context.Context, id string) (*models.GeneratedReport, error) {
	var report models.GeneratedReport
	if err := s.db.Store().Get(id, &report); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("report %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

func (s *ReportStorage) GetByEngagement(ctx context.Context, engagementID string) ([]*models.GeneratedReport, error) {
	var reports []models.GeneratedReport
	err := s.db.Store().Find(&reports, badgerhold.Where("EngagementID").Eq(engagementID).SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to get reports by engagement: %w", err)
	}

	result := make([]*models.GeneratedReport, len(reports))
	for i := range reports {
		result[i] = &reports[i]
	}
	return result, nil
}

func (s *ReportStorage) GetLatestByEngagement(ctx context.Context, engagementID string) (*models.GeneratedReport, error) {
	var reports []models.GeneratedReport
	err := s.db.Store().Find(&reports, badgerhold.Where("EngagementID").Eq(engagementID).SortBy("CreatedAt").Reverse().Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports for engagement %s: %w", engagementID, interfaces.ErrNotFound)
	}
	return &reports[0], nil
}

func (s *ReportStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.GeneratedReport{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("report %s: %w", id, interfaces.ErrNotFound)
		}
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

func (s *ReportStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.GeneratedReport{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return int(count), nil
}
