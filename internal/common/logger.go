package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

const defaultLogTimeFormat = "15:04:05.000"

// GetLogger returns the process-wide logger. Before InitLogger runs (tests,
// early startup failures) it falls back to a console-only logger.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	// Double-check after acquiring write lock
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriterConfig(defaultLogTimeFormat, true))
	}
	return globalLogger
}

// InitLogger builds the logger from the resolved config: level, text or
// JSON formatting, and the stdout/file writer set. The log file lives in
// logs/ next to the binary so a deployed instance keeps its logs with it.
func InitLogger(config *Config) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	timeFormat := config.Logging.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultLogTimeFormat
	}
	textOutput := config.Logging.Format != "json"

	logger := arbor.NewLogger()

	for _, output := range config.Logging.Output {
		switch output {
		case "file":
			logFile, err := resolveLogFile()
			if err != nil {
				fmt.Printf("Warning: file logging disabled: %v\n", err)
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         logFile,
				TimeFormat:       timeFormat,
				MaxSize:          100 * 1024 * 1024, // 100 MB
				MaxBackups:       3,
				TextOutput:       textOutput,
				DisableTimestamp: false,
			})

		case "stdout", "console":
			logger = logger.WithConsoleWriter(consoleWriterConfig(timeFormat, textOutput))
		}
	}

	logger = logger.WithLevelFromString(config.Logging.Level)

	globalLogger = logger

	return logger
}

func consoleWriterConfig(timeFormat string, textOutput bool) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       timeFormat,
		TextOutput:       textOutput,
		DisableTimestamp: false,
	}
}

// resolveLogFile creates the logs directory next to the executable and
// returns the log file path.
func resolveLogFile() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot locate executable: %w", err)
	}

	logsDir := filepath.Join(filepath.Dir(execPath), "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create logs directory: %w", err)
	}

	return filepath.Join(logsDir, "meld.log"), nil
}
