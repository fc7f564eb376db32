// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer CouncilLogger with contextual
// helpers (component, run) and domain specific helpers for model calls and
// fan-out runs.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger defines the minimal logging interface. Args are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// CouncilLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It should be cheap to copy via With* methods.
type CouncilLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	runID     string
}

// LoggerConfig configures construction of a CouncilLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	RunID       string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr, CustomAttrs: map[string]any{}}
}

// NewLogger builds a CouncilLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *CouncilLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	ctx := make(map[string]any, len(cfg.CustomAttrs))
	for k, v := range cfg.CustomAttrs {
		ctx[k] = v
	}
	return &CouncilLogger{logger: slog.New(handler), level: cfg.Level, context: ctx, component: cfg.Component, runID: cfg.RunID}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *CouncilLogger) clone() *CouncilLogger {
	nl := *l
	nl.context = make(map[string]any, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *CouncilLogger) WithContext(key string, value any) *CouncilLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (invoker, fanout, council).
func (l *CouncilLogger) WithComponent(c string) *CouncilLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithRun attaches a fan-out run identifier.
func (l *CouncilLogger) WithRun(runID string) *CouncilLogger {
	nl := l.clone()
	nl.runID = runID
	return nl
}

func (l *CouncilLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.runID != "" {
		attrs = append(attrs, slog.String("run_id", l.runID))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *CouncilLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(l.buildAttrs()...)
	r.Add(args...)
	_ = l.logger.Handler().Handle(context.Background(), r)
}

// Debug logs at debug level.
func (l *CouncilLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *CouncilLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *CouncilLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *CouncilLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogModelCall records latency and outcome of a single model invocation.
// kind classifies the failure and is ignored on success.
func (l *CouncilLogger) LogModelCall(model string, dur time.Duration, success bool, kind string, err error) {
	logModelCall(l, model, dur, success, kind, err)
}

// LogFanOut records the aggregate outcome of one fan-out run.
func (l *CouncilLogger) LogFanOut(models, failed int, dur time.Duration) {
	logFanOut(l, models, failed, dur)
}

// ModelCallLogger is implemented by loggers with a dedicated model-call entry.
type ModelCallLogger interface {
	LogModelCall(model string, dur time.Duration, success bool, kind string, err error)
}

// FanOutLogger is implemented by loggers with a dedicated fan-out summary entry.
type FanOutLogger interface {
	LogFanOut(models, failed int, dur time.Duration)
}

// LogModelCall writes a model-call entry to l, delegating to l's own helper
// when it implements ModelCallLogger.
func LogModelCall(l Logger, model string, dur time.Duration, success bool, kind string, err error) {
	if ml, ok := l.(ModelCallLogger); ok {
		ml.LogModelCall(model, dur, success, kind, err)
		return
	}
	logModelCall(l, model, dur, success, kind, err)
}

// LogFanOut writes a fan-out summary entry to l, delegating to l's own helper
// when it implements FanOutLogger.
func LogFanOut(l Logger, models, failed int, dur time.Duration) {
	if fl, ok := l.(FanOutLogger); ok {
		fl.LogFanOut(models, failed, dur)
		return
	}
	logFanOut(l, models, failed, dur)
}

func logModelCall(l Logger, model string, dur time.Duration, success bool, kind string, err error) {
	args := []any{"model", model, "duration", dur, "success", success}
	if !success {
		args = append(args, "kind", kind)
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.Warn("Model call failed", args...)
		return
	}
	l.Debug("Model call completed", args...)
}

func logFanOut(l Logger, models, failed int, dur time.Duration) {
	l.Info("Fan-out completed", "models", models, "failed", failed, "duration", dur)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new CouncilLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *CouncilLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

// With returns a Logger that prepends args to every entry. slog-backed
// loggers keep their native attribute handling; on a CouncilLogger the
// "component" and "run_id" keys replace the logger's own values.
func With(l Logger, args ...any) Logger {
	switch base := l.(type) {
	case nil:
		return NoOpLogger{}
	case NoOpLogger:
		return base
	case *SlogAdapter:
		return &SlogAdapter{Logger: base.Logger.With(args...)}
	case *CouncilLogger:
		if cl, ok := base.withArgs(args); ok {
			return cl
		}
	}
	return &withLogger{base: l, args: args}
}

// withArgs applies key/value pairs to a copy of l. It reports false when args
// are not well-formed string-keyed pairs.
func (l *CouncilLogger) withArgs(args []any) (*CouncilLogger, bool) {
	if len(args)%2 != 0 {
		return nil, false
	}
	for i := 0; i < len(args); i += 2 {
		if _, ok := args[i].(string); !ok {
			return nil, false
		}
	}
	nl := l
	for i := 0; i < len(args); i += 2 {
		switch key := args[i].(string); key {
		case "component":
			nl = nl.WithComponent(fmt.Sprint(args[i+1]))
		case "run_id":
			nl = nl.WithRun(fmt.Sprint(args[i+1]))
		default:
			nl = nl.WithContext(key, args[i+1])
		}
	}
	return nl, true
}

type withLogger struct {
	base Logger
	args []any
}

func (w *withLogger) merge(args []any) []any {
	out := make([]any, 0, len(w.args)+len(args))
	out = append(out, w.args...)
	return append(out, args...)
}

func (w *withLogger) Debug(msg string, args ...any) { w.base.Debug(msg, w.merge(args)...) }
func (w *withLogger) Info(msg string, args ...any)  { w.base.Info(msg, w.merge(args)...) }
func (w *withLogger) Warn(msg string, args ...any)  { w.base.Warn(msg, w.merge(args)...) }
func (w *withLogger) Error(msg string, args ...any) { w.base.Error(msg, w.merge(args)...) }
