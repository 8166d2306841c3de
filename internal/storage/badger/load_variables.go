package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// variableEntry is one [key-name] table in a variables TOML file:
//
//	[claude-api-key]
//	value = "sk-ant-..."
//	description = "Anthropic API key"
type variableEntry struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// loadTally accumulates per-file seeding results.
type loadTally struct {
	loaded  int
	skipped int
	failed  int
}

func (t *loadTally) add(other loadTally) {
	t.loaded += other.loaded
	t.skipped += other.skipped
	t.failed += other.failed
}

// LoadVariablesFromFiles seeds the key/value store from TOML files so API
// keys and other secrets never sit in the main config file. It reads
// variables.toml in the given directory, then every .toml file under a
// variables/ subdirectory. Unreadable files are logged and skipped;
// seeding problems never block startup.
func (m *Manager) LoadVariablesFromFiles(ctx context.Context, dirPath string) error {
	m.logger.Debug().Str("dir", dirPath).Msg("Loading variables from files")

	var tally loadTally

	variablesFile := filepath.Join(dirPath, "variables.toml")
	if _, err := os.Stat(variablesFile); err == nil {
		tally.add(m.seedFromFile(ctx, variablesFile))
	} else {
		m.logger.Debug().Str("file", variablesFile).Msg("variables.toml not found in directory, checking subdirectory")
	}

	variablesDir := filepath.Join(dirPath, "variables")
	if info, err := os.Stat(variablesDir); err == nil && info.IsDir() {
		tally.add(m.seedFromDirectory(ctx, variablesDir))
	}

	m.logger.Debug().
		Int("loaded", tally.loaded).
		Int("skipped", tally.skipped).
		Int("errors", tally.failed).
		Msg("Finished loading variables from files")

	return nil
}

// seedFromFile upserts every entry in one TOML file into the KV store.
func (m *Manager) seedFromFile(ctx context.Context, filePath string) loadTally {
	var tally loadTally

	content, err := os.ReadFile(filePath)
	if err != nil {
		m.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to read variable file")
		tally.failed++
		return tally
	}

	var entries map[string]variableEntry
	if err := toml.Unmarshal(content, &entries); err != nil {
		m.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to parse variable file")
		tally.failed++
		return tally
	}

	fileName := filepath.Base(filePath)
	for key, entry := range entries {
		if entry.Value == "" {
			m.logger.Warn().Str("file", fileName).Str("key", key).Msg("Skipping variable with empty value")
			tally.skipped++
			continue
		}

		description := entry.Description
		if description == "" {
			description = "Loaded from " + fileName
		}

		isNew, err := m.kv.Upsert(ctx, key, entry.Value, description)
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("Failed to store variable")
			tally.failed++
			continue
		}

		if isNew {
			m.logger.Debug().Str("key", key).Msg("Loaded new variable")
		} else {
			m.logger.Debug().Str("key", key).Msg("Updated existing variable")
		}
		tally.loaded++
	}

	return tally
}

// seedFromDirectory seeds from every .toml file directly under dirPath.
func (m *Manager) seedFromDirectory(ctx context.Context, dirPath string) loadTally {
	var tally loadTally

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		m.logger.Warn().Err(err).Str("dir", dirPath).Msg("Failed to read variables directory")
		tally.failed++
		return tally
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		tally.add(m.seedFromFile(ctx, filepath.Join(dirPath, entry.Name())))
	}

	return tally
}
