package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Claude      ClaudeConfig     `toml:"claude"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Generation  GenerationConfig `toml:"generation"`
	Research    ResearchConfig   `toml:"research"`
	Jobs        JobsConfig       `toml:"jobs"`
	Templates   TemplatesConfig  `toml:"templates"`
	Variables   KeysDirConfig    `toml:"variables"` // Variables directory (variables.toml) for key/value pairs
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// FilesystemConfig locates file blobs referenced by stored records.
type FilesystemConfig struct {
	Models  string `toml:"models"`  // Uploaded valuation workbooks
	Reports string `toml:"reports"` // Generated report artifacts
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`       // Model for generation (default: "claude-sonnet-4-20250514")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum spacing between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for generation (default: "gemini-2.5-flash")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum spacing between calls (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// GenerationProvider represents the AI provider type
type GenerationProvider string

const (
	// ProviderClaude uses the Anthropic Claude API
	ProviderClaude GenerationProvider = "claude"
	// ProviderGemini uses the Google Gemini API
	ProviderGemini GenerationProvider = "gemini"
)

// GenerationConfig contains provider-independent generation behavior
type GenerationConfig struct {
	DefaultProvider    GenerationProvider `toml:"default_provider"`    // "claude" or "gemini" (default: "claude")
	Model              string             `toml:"model"`               // Active model; provider inferred from the name ("gemini-*", "claude/..."), overrides default_provider
	MaxAttempts        int                `toml:"max_attempts"`        // Attempts per call including the first (default: 3)
	SectionConcurrency int                `toml:"section_concurrency"` // Parallel narrative sections (default: 2)
	MaxDocumentBytes   int64              `toml:"max_document_bytes"`  // Document-grounded call size cap (default: 30MB)
}

// ResearchConfig contains research stage configuration
type ResearchConfig struct {
	MaxCitations int `toml:"max_citations"` // Citations kept per research result (default: 5)
}

// JobsConfig contains job registry housekeeping configuration
type JobsConfig struct {
	RetainFor     string `toml:"retain_for"`     // How long terminal jobs stay queryable (default: "24h")
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for the stale-job sweep (default: hourly)
}

// TemplatesConfig locates report template definition files
type TemplatesConfig struct {
	Dir       string `toml:"dir"`        // Directory containing template files (TOML)
	DefaultID string `toml:"default_id"` // Template used when a submission names none
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in meld.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Filesystem: FilesystemConfig{
				Models:  "./data/models",
				Reports: "./data/reports",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.5-flash",
			MaxTokens:   8192,
			Timeout:     "2m",
			RateLimit:   "4s", // 15 RPM free tier
			Temperature: 0.7,
		},
		Generation: GenerationConfig{
			DefaultProvider:    ProviderClaude,
			MaxAttempts:        3,
			SectionConcurrency: 2,
			MaxDocumentBytes:   30 * 1024 * 1024,
		},
		Research: ResearchConfig{
			MaxCitations: 5,
		},
		Jobs: JobsConfig{
			RetainFor:     "24h",
			SweepSchedule: "0 * * * *", // hourly
		},
		Templates: TemplatesConfig{
			Dir:       "./templates",
			DefaultID: "standard-valuation",
		},
		Variables: KeysDirConfig{
			Dir: "./", // Default directory for the variables.toml file
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files
// override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: MELD_ENV, fallback: GO_ENV)
	if env := os.Getenv("MELD_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MELD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MELD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("MELD_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if modelsDir := os.Getenv("MELD_MODELS_DIR"); modelsDir != "" {
		config.Storage.Filesystem.Models = modelsDir
	}
	if reportsDir := os.Getenv("MELD_REPORTS_DIR"); reportsDir != "" {
		config.Storage.Filesystem.Reports = reportsDir
	}

	// Logging configuration
	if level := os.Getenv("MELD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("MELD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("MELD_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("MELD_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // MELD_ prefix takes priority
	}
	if model := os.Getenv("MELD_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("MELD_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("MELD_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("MELD_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("MELD_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("MELD_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("MELD_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("MELD_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("MELD_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("MELD_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Generation configuration
	if provider := os.Getenv("MELD_GENERATION_PROVIDER"); provider != "" {
		config.Generation.DefaultProvider = GenerationProvider(provider)
	}
	if model := os.Getenv("MELD_GENERATION_MODEL"); model != "" {
		config.Generation.Model = model
	}
	if attempts := os.Getenv("MELD_GENERATION_MAX_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil && a > 0 {
			config.Generation.MaxAttempts = a
		}
	}
	if concurrency := os.Getenv("MELD_GENERATION_SECTION_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Generation.SectionConcurrency = c
		}
	}

	// Jobs configuration
	if retainFor := os.Getenv("MELD_JOBS_RETAIN_FOR"); retainFor != "" {
		if _, err := time.ParseDuration(retainFor); err == nil {
			config.Jobs.RetainFor = retainFor
		}
	}
	if schedule := os.Getenv("MELD_JOBS_SWEEP_SCHEDULE"); schedule != "" {
		config.Jobs.SweepSchedule = schedule
	}

	// Templates configuration
	if templatesDir := os.Getenv("MELD_TEMPLATES_DIR"); templatesDir != "" {
		config.Templates.Dir = templatesDir
	}
	if defaultID := os.Getenv("MELD_TEMPLATES_DEFAULT_ID"); defaultID != "" {
		config.Templates.DefaultID = defaultID
	}

	// Variables configuration
	if variablesDir := os.Getenv("MELD_VARIABLES_DIR"); variablesDir != "" {
		config.Variables.Dir = variablesDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables -> KV store -> config fallback -> error.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"anthropic_api_key": {"MELD_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"claude_api_key":    {"MELD_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"gemini_api_key":    {"MELD_GEMINI_API_KEY", "GEMINI_API_KEY"},
	}

	// Check environment variables (highest priority)
	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Try the KV store (file-based variables)
	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	// Fallback to config value (lowest priority)
	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ParseDurationOr parses a duration string, returning the fallback on
// empty or invalid input.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// ValidateSweepSchedule validates a cron schedule expression and enforces a
// minimum 5-minute interval so the sweep cannot spin.
func ValidateSweepSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("sweep schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("sweep interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
