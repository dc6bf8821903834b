package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel parses a string level to Level
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userIDKey    ctxKey = "user_id"
)

// ContextWithRequestID stores the request id for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithUserID stores the user id for WithContext.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Logger is a structured logger. Fields accumulate on copies, the receiver is never mutated.
type Logger struct {
	zl zerolog.Logger
}

// Config for logger
type Config struct {
	Level   Level
	Output  io.Writer
	Service string
	// Pretty switches to the human readable console writer.
	Pretty bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger
func Init(cfg Config) {
	once.Do(func() {
		defaultLogger = New(cfg)
	})
}

// Default returns the default logger
func Default() *Logger {
	if defaultLogger == nil {
		Init(Config{Level: LevelInfo, Output: os.Stdout, Service: "inboxiq"})
	}
	return defaultLogger
}

// New creates a new logger instance
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if cfg.Service == "" {
		cfg.Service = "inboxiq"
	}
	zl := zerolog.New(out).
		Level(cfg.Level.zerolog()).
		With().
		Timestamp().
		Str("service", cfg.Service).
		Logger()
	return &Logger{zl: zl}
}

// Zerolog exposes the underlying logger for libraries that take one.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a new logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

// WithContext extracts request_id and user_id from context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	c := l.zl.With()
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		c = c.Str("request_id", reqID)
	}
	if userID, ok := ctx.Value(userIDKey).(string); ok && userID != "" {
		c = c.Str("user_id", userID)
	}
	return &Logger{zl: c.Logger()}
}

// WithError adds error information
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// WithDuration adds duration in milliseconds
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return l.WithField("duration_ms", float64(d.Microseconds())/1000.0)
}

func (l *Logger) log(ev *zerolog.Event, msg string, args ...any) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	ev.Msg(msg)
}

// Log methods
func (l *Logger) Debug(msg string, args ...any) { l.log(l.zl.Debug(), msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(l.zl.Info(), msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(l.zl.Warn(), msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(l.zl.Error().Caller(2), msg, args...) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, args ...any) { l.log(l.zl.Fatal().Caller(2), msg, args...) }

// Package-level functions using default logger
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
func Fatal(msg string, args ...any) { Default().Fatal(msg, args...) }

func WithField(key string, value any) *Logger  { return Default().WithField(key, value) }
func WithFields(fields map[string]any) *Logger { return Default().WithFields(fields) }
func WithContext(ctx context.Context) *Logger  { return Default().WithContext(ctx) }
func WithError(err error) *Logger              { return Default().WithError(err) }
func WithDuration(d time.Duration) *Logger     { return Default().WithDuration(d) }
