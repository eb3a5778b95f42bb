// Package logging provides categorized file-based logging for webrtcbuild.
// Logs are written to <workdir>/logs/ with separate files per category.
// Logging is a no-op unless debug mode is enabled in the configuration, so
// a production run leaves nothing behind except its artifacts.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category, one per pipeline concern.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config resolution
	CategoryShell    Category = "shell"    // Subprocess execution
	CategoryFetch    Category = "fetch"    // depot_tools / source acquisition
	CategorySync     Category = "sync"     // gclient sync, checkout pinning
	CategoryEnv      Category = "env"      // Build environment assembly
	CategoryGN       Category = "gn"       // Generator invocation
	CategoryNinja    Category = "ninja"    // Build executor invocation
	CategoryArtifact Category = "artifact" // Header harvest, archiving
	CategoryPipeline Category = "pipeline" // Stage orchestration
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options controls logger behavior. The CLI fills this from the loaded
// configuration so this package stays free of config imports.
type Options struct {
	// DebugMode enables file logging. When false every call is a no-op.
	DebugMode bool

	// Level is the minimum level written: "debug", "info", "warn", "error".
	Level string

	// Categories filters which categories are written. Empty means all.
	Categories map[string]bool
}

// Logger wraps a standard logger bound to one category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	optsMu   sync.RWMutex
	opts     Options
	logsDir  string
	logLevel int
)

// Initialize sets up the logging directory under the given work directory.
// Call once at startup, after configuration is loaded. With DebugMode off
// this is a silent no-op and no directory is created.
func Initialize(workDir string, o Options) error {
	if workDir == "" {
		return fmt.Errorf("work directory required")
	}

	optsMu.Lock()
	opts = o
	logsDir = filepath.Join(workDir, "logs")
	logLevel = parseLevel(o.Level)
	optsMu.Unlock()

	if !o.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== webrtcbuild logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", o.Level)
	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsDebugMode returns whether file logging is enabled.
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a category is enabled.
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category. A no-op logger is
// returned when the category is disabled or initialization never happened.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	optsMu.RLock()
	dir := logsDir
	optsMu.RUnlock()
	if dir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation trivial.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || currentLevel() > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || currentLevel() > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || currentLevel() > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message. Always written if the logger exists.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

func currentLevel() int {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return logLevel
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions, one pair per category. No-ops when disabled.

func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Shell(format string, args ...interface{}) { Get(CategoryShell).Info(format, args...) }

func ShellDebug(format string, args ...interface{}) { Get(CategoryShell).Debug(format, args...) }

func ShellWarn(format string, args ...interface{}) { Get(CategoryShell).Warn(format, args...) }

func ShellError(format string, args ...interface{}) { Get(CategoryShell).Error(format, args...) }

func Fetch(format string, args ...interface{}) { Get(CategoryFetch).Info(format, args...) }

func FetchDebug(format string, args ...interface{}) { Get(CategoryFetch).Debug(format, args...) }

func Sync(format string, args ...interface{}) { Get(CategorySync).Info(format, args...) }

func SyncDebug(format string, args ...interface{}) { Get(CategorySync).Debug(format, args...) }

func Env(format string, args ...interface{}) { Get(CategoryEnv).Info(format, args...) }

func EnvDebug(format string, args ...interface{}) { Get(CategoryEnv).Debug(format, args...) }

func GN(format string, args ...interface{}) { Get(CategoryGN).Info(format, args...) }

func GNDebug(format string, args ...interface{}) { Get(CategoryGN).Debug(format, args...) }

func Ninja(format string, args ...interface{}) { Get(CategoryNinja).Info(format, args...) }

func NinjaDebug(format string, args ...interface{}) { Get(CategoryNinja).Debug(format, args...) }

func Artifact(format string, args ...interface{}) { Get(CategoryArtifact).Info(format, args...) }

func ArtifactDebug(format string, args ...interface{}) { Get(CategoryArtifact).Debug(format, args...) }

func Pipeline(format string, args ...interface{}) { Get(CategoryPipeline).Info(format, args...) }

func PipelineDebug(format string, args ...interface{}) { Get(CategoryPipeline).Debug(format, args...) }

func PipelineWarn(format string, args ...interface{}) { Get(CategoryPipeline).Warn(format, args...) }
