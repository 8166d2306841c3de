package badger

import (
	"fmt"
	"os"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
)

// BadgerDB owns the embedded Badger store shared by the typed storage
// wrappers. A single store holds engagements, reports, outlooks, and the
// key/value pairs.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB opens the database at config.Path, creating parent
// directories as needed. With reset_on_startup set, any existing data
// directory is removed first so tests and local runs start clean.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		resetDataDir(logger, config.Path)
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening Badger database connection")

	store, err := badgerhold.Open(storeOptions(config.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}, nil
}

// storeOptions tunes Badger for this workload: records are small and
// rewritten rarely, so a modest index cache and a single kept version
// are enough.
func storeOptions(path string) badgerhold.Options {
	options := badgerhold.DefaultOptions
	options.Options = badgerdb.DefaultOptions(path).
		WithLogger(nil). // Badger's own logger is noisy; arbor covers it
		WithIndexCacheSize(32 << 20).
		WithNumVersionsToKeep(1)
	return options
}

// resetDataDir removes an existing data directory. Failures are logged
// and ignored; badgerhold.Open surfaces anything fatal.
func resetDataDir(logger arbor.ILogger, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	logger.Debug().Str("path", path).Msg("Deleting existing database (reset_on_startup=true)")
	if err := os.RemoveAll(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to delete database directory")
	}
}

// Store returns the underlying badgerhold store for the typed wrappers.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection.
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
