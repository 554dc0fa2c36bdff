// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bulletin/internal/timeutil"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = &Logger{Logger: slog.New(&ctxHandler{slog.NewTextHandler(os.Stdout, nil)})}
}

// ContextKey is the type for request-scoped values read by the logger.
type ContextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey ContextKey = "request_id"
	// TraceIDKey is the context key for the trace ID.
	TraceIDKey ContextKey = "trace_id"
)

// ExtractRequestID returns the request ID from the context if set.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// fanoutHandler writes each record to every handler that accepts its level.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// LogConfig describes where and how log records are written.
type LogConfig struct {
	Level     string
	Format    string // "json" or "text"
	Location  *time.Location
	ToFile    bool
	File      string
	ErrorFile string
	Stdout    io.Writer
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// NewLogger builds a logger from cfg. The returned close function releases
// any log files that were opened.
func NewLogger(cfg LogConfig) (*Logger, func() error, error) {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	loc := cfg.Location
	if loc == nil {
		loc = timeutil.LoadLocation(timeutil.DefaultZone)
	}

	replace := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.String(slog.TimeKey, timeutil.Format(a.Value.Time(), loc))
		}
		return a
	}
	level := ParseLevel(cfg.Level)
	handlers := fanoutHandler{newHandler(cfg.Format, stdout, &slog.HandlerOptions{Level: level, ReplaceAttr: replace})}

	var files []*os.File
	closeFiles := func() error {
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}

	if cfg.ToFile {
		for _, target := range []struct {
			path  string
			level slog.Level
		}{
			{cfg.File, level},
			{cfg.ErrorFile, slog.LevelError},
		} {
			if target.path == "" {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target.path), 0o755); err != nil {
				_ = closeFiles()
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
			f, err := os.OpenFile(target.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				_ = closeFiles()
				return nil, nil, fmt.Errorf("open log file %s: %w", target.path, err)
			}
			files = append(files, f)
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: target.level, ReplaceAttr: replace}))
		}
	}

	var h slog.Handler = handlers
	if len(handlers) == 1 {
		h = handlers[0]
	}
	return &Logger{Logger: slog.New(&ctxHandler{h})}, closeFiles, nil
}

// SetupLogger replaces GlobalLogger and the slog default with a logger built from cfg.
func SetupLogger(cfg LogConfig) (func() error, error) {
	l, closeFn, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	GlobalLogger = l
	slog.SetDefault(l.Logger)
	return closeFn, nil
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableRepoLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging: true,
}

// Thresholds for LogPerformance.
const (
	SlowOperation     = time.Second
	VerySlowOperation = 5 * time.Second
)

// LogPerformance records how long an operation took. Operations over five
// seconds log at warn, over one second at info, the rest at debug.
func LogPerformance(ctx context.Context, operation string, elapsed time.Duration, attrs ...any) {
	level := slog.LevelDebug
	switch {
	case elapsed > VerySlowOperation:
		level = slog.LevelWarn
	case elapsed > SlowOperation:
		level = slog.LevelInfo
	}
	attrs = append([]any{
		slog.String("operation", operation),
		slog.String("duration", timeutil.FormatDuration(elapsed)),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	}, attrs...)
	GlobalLogger.Log(ctx, level, "performance", attrs...)
}

// LogSecurity records a security-relevant event such as a rejected password.
func LogSecurity(ctx context.Context, event string, attrs ...any) {
	attrs = append([]any{slog.String("event", event)}, attrs...)
	GlobalLogger.WarnContext(ctx, "security event", attrs...)
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	dbName    string
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given database and table.
func NewRepoLogger(dbName, tableName string) *RepoLogger {
	return &RepoLogger{dbName: dbName, tableName: tableName}
}

func (l *RepoLogger) log(ctx context.Context, level slog.Level, operation string, fields map[string]any) {
	if !Config.EnableRepoLogging {
		return
	}
	attrs := []any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.Log(ctx, level, "repository "+operation, attrs...)
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]any) {
	l.log(ctx, slog.LevelInfo, "create", fields)
}

// LogRead logs a repository read operation.
func (l *RepoLogger) LogRead(ctx context.Context, fields map[string]any) {
	l.log(ctx, slog.LevelDebug, "read", fields)
}

// LogUpdate logs a repository update operation.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]any) {
	l.log(ctx, slog.LevelInfo, "update", fields)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]any) {
	l.log(ctx, slog.LevelInfo, "delete", fields)
}

// LogError logs a storage failure with the driver's error code, if any.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation, errorCode string) {
	if !Config.EnableRepoLogging {
		return
	}
	GlobalLogger.ErrorContext(ctx, "repository error",
		slog.String("db", l.dbName),
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("error_code", errorCode),
		slog.String("error", err.Error()),
	)
}
