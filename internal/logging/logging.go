// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"signal-engine/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "signal-engine", "logs", "signal-engine.log"),
		MaxSize:    50,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a logger writing to stderr and, optionally, a
// rotating file. Stdout is left to command output.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				ll, ok := i.(string)
				if !ok {
					return "???"
				}
				switch ll {
				case "debug":
					return "\033[36mDBG\033[0m"
				case "info":
					return "\033[32mINF\033[0m"
				case "warn":
					return "\033[33mWRN\033[0m"
				case "error":
					return "\033[31mERR\033[0m"
				}
				return ll
			},
		})
	}

	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a config level name to a zerolog level. Unknown names are info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// WithProvider adds a data provider name to the logger context.
func WithProvider(logger zerolog.Logger, provider string) zerolog.Logger {
	return logger.With().Str("provider", provider).Logger()
}

// LogSignal logs a day's composite signal.
func LogSignal(logger zerolog.Logger, sig models.CompositeSignal) {
	logger.Info().
		Str("event", "signal").
		Str("symbol", sig.Symbol).
		Str("date", models.DateKey(sig.Date)).
		Int("score", sig.Score).
		Str("label", string(sig.Label)).
		Msg("Composite signal")
}

// LogCross logs a detected crossover.
func LogCross(logger zerolog.Logger, ev models.CrossEvent) {
	logger.Info().
		Str("event", "cross").
		Str("symbol", ev.Symbol).
		Str("kind", string(ev.Kind)).
		Str("direction", string(ev.Direction)).
		Float64("reference", ev.ReferenceLevel).
		Msg("Crossover detected")
}

// LogBoxEvent logs a consolidation box transition.
func LogBoxEvent(logger zerolog.Logger, ev models.BoxEvent) {
	logger.Info().
		Str("event", "box").
		Str("symbol", ev.Box.Symbol).
		Str("kind", string(ev.Kind)).
		Str("date", models.DateKey(ev.Date)).
		Float64("box_high", ev.Box.BoxHigh).
		Float64("box_low", ev.Box.BoxLow).
		Msg("Consolidation box transition")
}

// LogExitAlert logs an exit alert at a level matching its severity.
func LogExitAlert(logger zerolog.Logger, alert models.ExitAlert) {
	event := logger.Debug()
	switch alert.Severity {
	case models.SeverityCritical:
		event = logger.Warn()
	case models.SeverityWarning:
		event = logger.Info()
	}
	event.
		Str("event", "exit_alert").
		Str("position_id", alert.PositionID).
		Str("symbol", alert.Symbol).
		Str("criterion", alert.TriggeringCriterion).
		Str("severity", string(alert.Severity)).
		Msg(alert.Message)
}

// LogFetch logs a provider call.
func LogFetch(logger zerolog.Logger, provider, symbol string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "fetch").
		Str("provider", provider).
		Str("symbol", symbol).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Fetch failed")
	} else {
		event.Msg("Fetch completed")
	}
}
