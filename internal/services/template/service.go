// -----------------------------------------------------------------------
// Template Service - Loads report templates from TOML definition files
// -----------------------------------------------------------------------

package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
)

// Service loads template definitions from a directory of TOML files and
// serves them by ID. Built-in templates are always available; a definition
// file with the same ID overrides the built-in.
type Service struct {
	dir       string
	logger    arbor.ILogger
	mu        sync.RWMutex
	templates map[string]*models.ReportTemplate
}

// NewService creates a template service and performs the initial load.
// A missing directory is not an error; built-ins still serve.
func NewService(dir string, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		dir:       dir,
		logger:    logger,
		templates: make(map[string]*models.ReportTemplate),
	}

	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Get returns the template with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*models.ReportTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", id)
	}

	return tmpl, nil
}

// List returns all loaded templates sorted by ID.
func (s *Service) List(ctx context.Context) ([]*models.ReportTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]*models.ReportTemplate, 0, len(s.templates))
	for _, tmpl := range s.templates {
		templates = append(templates, tmpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })

	return templates, nil
}

// Reload rescans the template directory. Built-ins are re-seeded first so a
// deleted definition file falls back to the built-in rather than vanishing.
func (s *Service) Reload(ctx context.Context) error {
	loaded := make(map[string]*models.ReportTemplate)

	for _, tmpl := range builtinTemplates() {
		loaded[tmpl.ID] = tmpl
	}

	if s.dir != "" {
		if info, err := os.Stat(s.dir); err == nil && info.IsDir() {
			if err := s.loadFromDirectory(loaded, s.dir); err != nil {
				return err
			}
		} else {
			s.logger.Debug().Str("dir", s.dir).Msg("Template directory not found, serving built-ins only")
		}
	}

	s.mu.Lock()
	s.templates = loaded
	s.mu.Unlock()

	s.logger.Info().
		Int("template_count", len(loaded)).
		Str("dir", s.dir).
		Msg("Templates loaded")

	return nil
}

// loadFromDirectory parses every .toml file in dir into loaded. A file that
// fails to parse or validate is skipped with a warning so one bad definition
// cannot take down the rest.
func (s *Service) loadFromDirectory(loaded map[string]*models.ReportTemplate, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		filePath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(filePath)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to read template file")
			continue
		}

		var tmpl models.ReportTemplate
		if err := toml.Unmarshal(content, &tmpl); err != nil {
			s.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to parse template file")
			continue
		}

		if err := tmpl.Validate(); err != nil {
			s.logger.Warn().Err(err).Str("file", filePath).Msg("Skipping invalid template")
			continue
		}

		if _, exists := loaded[tmpl.ID]; exists {
			s.logger.Debug().Str("template_id", tmpl.ID).Str("file", entry.Name()).Msg("Template definition overrides built-in")
		}
		loaded[tmpl.ID] = &tmpl
	}

	return nil
}

// Ensure interface compliance at compile time.
var _ interfaces.TemplateService = (*Service)(nil)
