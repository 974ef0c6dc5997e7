package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Constants for log levels that match slog.Level values.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Output formats.
const (
	FormatTint = "tint"
	FormatJSON = "json"
	FormatText = "text"
)

// Type aliases for commonly used slog types.
type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

// LoggerConfig holds configuration parameters for logging.
type LoggerConfig struct {
	// AppName is the application identifier added to all log entries
	AppName string

	// Output specifies where logs are written ("stdout", "stderr", "discard" or a file path)
	Output string `env:"OUTPUT" default:"stderr"`

	// Level sets the minimum log level ("debug", "info", "warn", "error")
	Level string `env:"LEVEL" default:"info"`

	// Filter specifies per-logger overrides ("name:level,name:level")
	Filter string `env:"FILTER" default:""`

	// Format selects the record encoding ("tint", "json" or "text")
	Format string `env:"FORMAT" default:"tint"`

	// NoColor disables ANSI colors in tint output
	NoColor bool `env:"NO_COLOR" default:"false"`

	// AddSource includes the caller location in every record
	AddSource bool `env:"ADD_SOURCE" default:"false"`

	OutputHandle io.Writer
}

//nolint:gochecknoglobals
var (
	Group      = slog.Group
	GroupValue = slog.GroupValue

	config     LoggerConfig
	configLock sync.Mutex
)

// Configure sets up global logging configuration for the application.
// It must be called before any loggers are created.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) {
	configure(cfg, appName)

	GetLogger("infra.logging").With(Group("config",
		"appName", appName,
		"output", cfg.Output,
		"level", cfg.Level,
		"filter", cfg.Filter,
		"format", cfg.Format,
	)).DebugContext(ctx, "logging configured")
}

func configure(cfg LoggerConfig, appName string) {
	configLock.Lock()
	defer configLock.Unlock()

	config = cfg
	config.AppName = appName

	if cfg.OutputHandle == nil {
		switch cfg.Output {
		case "", "discard":
			config.OutputHandle = io.Discard
		case "stdout":
			config.OutputHandle = os.Stdout
		case "stderr":
			config.OutputHandle = os.Stderr
		default:
			file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				panic(fmt.Errorf("failed to open log file: %w", err))
			}

			config.OutputHandle = file
		}
	}

	slog.SetLogLoggerLevel(ParseLevel(config.Level, LevelInfo))
}

// GetLogLogger creates a standard library *log.Logger that writes through a slog.Logger.
// Useful for adapting third-party code that expects a *log.Logger.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	handler := logger.With("stdlog", true).Handler()

	return slog.NewLogLogger(handler, level)
}

// GetLogger creates a new logger with the given name using the global configuration.
// The name is included in log entries to identify the source module and selects
// the level override from the filter.
func GetLogger(name string) Logger {
	cfg := snapshot()

	if cfg.OutputHandle == io.Discard {
		return NewNopLogger()
	}

	handler := newFormatHandler(cfg)
	handler = NewFilterHandler(handler, ParseLevel(cfg.Level, LevelInfo), ParseFilter(cfg.Filter))
	handler = NewRequestHandler(handler)

	logger := slog.New(handler)

	if cfg.AppName != "" {
		logger = logger.With("app", cfg.AppName)
	}

	return logger.With(LoggerKey, name)
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}

// newFormatHandler returns the encoding handler. Level filtering is left to FilterHandler,
// so it accepts every record.
func newFormatHandler(cfg LoggerConfig) Handler {
	const minLevel = slog.Level(-8)

	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		//nolint:exhaustruct
		return slog.NewJSONHandler(cfg.OutputHandle, &slog.HandlerOptions{AddSource: cfg.AddSource, Level: minLevel})
	case FormatText:
		//nolint:exhaustruct
		return slog.NewTextHandler(cfg.OutputHandle, &slog.HandlerOptions{AddSource: cfg.AddSource, Level: minLevel})
	default:
		//nolint:exhaustruct
		return tint.NewHandler(cfg.OutputHandle, &tint.Options{
			AddSource:  cfg.AddSource,
			Level:      minLevel,
			TimeFormat: time.TimeOnly + ".000000",
			NoColor:    cfg.NoColor,
		})
	}
}

func snapshot() LoggerConfig {
	configLock.Lock()
	defer configLock.Unlock()

	cfg := config
	if cfg.OutputHandle == nil {
		cfg.OutputHandle = io.Discard
	}

	return cfg
}

// ParseLevel parses a level name, returning fallback for unknown names.
func ParseLevel(levelStr string, fallback Level) Level {
	var level Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		return fallback
	}

	return level
}
