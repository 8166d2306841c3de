package badger

import (
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	engagements interfaces.EngagementStorage
	reports     interfaces.ReportStorage
	outlooks    interfaces.OutlookStorage
	kv          *KVStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		engagements: NewEngagementStorage(db, logger),
		reports:     NewReportStorage(db, logger),
		outlooks:    NewOutlookStorage(db, logger),
		kv:          NewKVStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Engagements returns the engagement storage interface
func (m *Manager) Engagements() interfaces.EngagementStorage {
	return m.engagements
}

// Reports returns the generated report storage interface
func (m *Manager) Reports() interfaces.ReportStorage {
	return m.reports
}

// Outlooks returns the economic outlook storage interface
func (m *Manager) Outlooks() interfaces.OutlookStorage {
	return m.outlooks
}

// KeyValue returns the key/value storage interface
func (m *Manager) KeyValue() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
