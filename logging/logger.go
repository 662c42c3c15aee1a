package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/batchssh/util/pathutil"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	applied Config
)

// Apply installs the logging configuration for loggers created afterwards.
// Components obtained before Apply keep their original settings, so the CLI
// applies configuration before constructing any component loggers.
func Apply(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	applied = cfg
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
//
// All log output goes to stderr and, optionally, a file. Stdout is never
// written to: it carries the relayed byte stream and anything else would
// corrupt the attached client's view of the remote shell.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logCfg := applied

	// Configure Level
	levelStr := "info"
	if os.Getenv("BATCHSSH_LOG_LEVEL") != "" {
		levelStr = os.Getenv("BATCHSSH_LOG_LEVEL")
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Configure Caller Reporting
	if os.Getenv("BATCHSSH_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	// Configure Formatter
	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{
			Config: logCfg.Format,
			Color:  isatty.IsTerminal(os.Stderr.Fd()),
		})
	}

	writers := []io.Writer{os.Stderr}

	if logCfg.File.Enabled {
		logFilePath := logCfg.File.Path
		if logFilePath != "" {
			if expanded, err := pathutil.Expand(logFilePath); err == nil {
				logFilePath = expanded
			}
		}
		if logFilePath == "" {
			home, homeErr := os.UserHomeDir()
			if homeErr == nil {
				dateStr := time.Now().Format("2006-01-02")
				logFilePath = filepath.Join(home, ".batchssh", "logs",
					fmt.Sprintf("%s-%s.log", component, dateStr))
			}
		}

		if logFilePath != "" {
			dir := filepath.Dir(logFilePath)
			if err := os.MkdirAll(dir, 0755); err != nil {
				logger.Warnf("Failed to create log directory %s: %v", dir, err)
			} else {
				file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err == nil {
					writers = append(writers, file)
				} else {
					logger.Warnf("Failed to open log file %s: %v", logFilePath, err)
				}
			}
		}
	}

	logger.SetOutput(io.MultiWriter(writers...))

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}
