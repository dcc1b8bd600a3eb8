package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Logger wraps slog for structured logging
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration
type Config struct {
	Level       string
	Format      string // json or text
	AddSource   bool
	Service     string
	Version     string
	Environment string
}

// contextKey is the type for context keys
type contextKey string

const (
	connIDKey contextKey = "conn_id"
)

// New creates a new structured logger
func New(cfg Config) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	// Wrap with default attributes
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("environment", cfg.Environment),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewDefault creates a default logger
func NewDefault() *Logger {
	return New(Config{
		Level:       "info",
		Format:      "json",
		AddSource:   true,
		Service:     "socks5d",
		Version:     "1.0.0",
		Environment: getEnv("ENVIRONMENT", "development"),
	})
}

// WithConnID adds a per-connection correlation ID to the logger. The
// connection driver mints one uuid per accepted socket so every log
// line for that connection's lifetime can be grepped together.
func (l *Logger) WithConnID(id uuid.UUID) *Logger {
	return &Logger{
		Logger: l.With(slog.String("conn_id", id.String())),
	}
}

// WithContext extracts values from context and adds them to the logger
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if connID := ctx.Value(connIDKey); connID != nil {
		if id, ok := connID.(uuid.UUID); ok {
			return l.WithConnID(id)
		}
	}
	return l
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.With(slog.String("error", err.Error())),
	}
}

// WithField adds a custom field to the logger
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{
		Logger: l.With(slog.Any(key, value)),
	}
}

// WithFields adds multiple custom fields to the logger
func (l *Logger) WithFields(fields map[string]any) *Logger {
	attrs := make([]any, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.With(attrs...),
	}
}

// LogError logs an error
func (l *Logger) LogError(msg string, err error, fields ...any) {
	attrs := append([]any{slog.String("error", err.Error())}, fields...)
	l.Error(msg, attrs...)
}

// LogPanic logs a panic and recovers
func (l *Logger) LogPanic(r any) {
	l.Error("panic_recovered",
		slog.Any("panic", r),
	)
}

// LogAuth logs a SOCKS5 authentication attempt.
func (l *Logger) LogAuth(method, remoteAddr string, success bool) {
	l.Info("auth_event",
		slog.String("method", method),
		slog.String("remote_addr", remoteAddr),
		slog.Bool("success", success),
	)
}

// LogConn logs a connection-lifecycle event for the relay phase.
func (l *Logger) LogConn(event, remoteAddr, target string, duration time.Duration) {
	l.Info("conn_event",
		slog.String("event", event),
		slog.String("remote_addr", remoteAddr),
		slog.String("target", target),
		slog.Duration("duration", duration),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Global logger instance
var global *Logger

func init() {
	global = NewDefault()
}

// Global returns the global logger instance
func Global() *Logger {
	return global
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	global = l
}

// Helper functions for global logger
func Debug(msg string, args ...any) {
	global.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	global.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	global.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	global.Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	global.Error(msg, args...)
	os.Exit(1)
}
