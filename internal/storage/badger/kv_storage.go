package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// KVStorage is the Badger-backed key/value store. Keys are normalized to
// lowercase so "Claude-API-Key" and "claude-api-key" address the same
// setting regardless of how an operator typed it.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) *KVStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get retrieves a value by key (case-insensitive)
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var pair interfaces.KeyValuePair
	switch err := s.db.Store().Get(normalizeKey(key), &pair); {
	case err == badgerhold.ErrNotFound:
		return "", interfaces.ErrKeyNotFound
	case err != nil:
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return pair.Value, nil
}

// Set inserts or updates a key/value pair (case-insensitive)
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	_, err := s.Upsert(ctx, key, value, description)
	return err
}

// Upsert inserts or updates a key/value pair and reports whether the key
// was new. CreatedAt survives updates; UpdatedAt always moves.
func (s *KVStorage) Upsert(ctx context.Context, key string, value string, description string) (bool, error) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return false, fmt.Errorf("key must not be empty")
	}
	now := time.Now()

	pair := interfaces.KeyValuePair{
		Key:         normalized,
		Value:       value,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var existing interfaces.KeyValuePair
	err := s.db.Store().Get(normalized, &existing)
	isNewKey := err == badgerhold.ErrNotFound
	switch {
	case err == nil:
		pair.CreatedAt = existing.CreatedAt
	case !isNewKey:
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}

	if err := s.db.Store().Upsert(normalized, &pair); err != nil {
		return false, fmt.Errorf("failed to upsert key/value: %w", err)
	}

	return isNewKey, nil
}

// Delete removes a key/value pair (case-insensitive)
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(normalizeKey(key), &interfaces.KeyValuePair{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// List returns all key/value pairs ordered by updated_at DESC
func (s *KVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	var pairs []interfaces.KeyValuePair
	err := s.db.Store().Find(&pairs, badgerhold.Where("Key").Ne("").SortBy("UpdatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list key/value pairs: %w", err)
	}
	return pairs, nil
}

// GetAll returns every pair as a key -> value map, the shape the config
// token resolver consumes.
func (s *KVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	pairs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	kvMap := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		kvMap[pair.Key] = pair.Value
	}
	return kvMap, nil
}
