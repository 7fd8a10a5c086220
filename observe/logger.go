package observe

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel orders log entries by severity.
type LogLevel int8

const (
	LevelDebug = LogLevel(zapcore.DebugLevel)
	LevelInfo  = LogLevel(zapcore.InfoLevel)
	LevelWarn  = LogLevel(zapcore.WarnLevel)
	LevelError = LogLevel(zapcore.ErrorLevel)
)

// ParseLogLevel maps debug, info, warn and error to a level. Anything else
// is info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string { return l.zap().String() }

func (l LogLevel) zap() zapcore.Level { return zapcore.Level(l) }

// Field keys whose values never reach log output. Cached values are
// included because they may hold user data.
var redactedKeys = map[string]struct{}{
	"password":   {},
	"secret":     {},
	"token":      {},
	"api_key":    {},
	"apiKey":     {},
	"credential": {},
	"value":      {},
}

const redactedMarker = "[REDACTED]"

// redact returns the value to log for f. Errors are logged as their text.
func redact(f Field) any {
	if _, ok := redactedKeys[f.Key]; ok {
		return redactedMarker
	}
	if err, ok := f.Value.(error); ok {
		return err.Error()
	}
	return f.Value
}

// NewLogger writes one JSON object per line to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter writes one JSON object per line to w. Each line has
// timestamp, level and msg keys followed by the fields.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), ParseLogLevel(level).zap())
	return NewZapLogger(zap.New(core))
}

type noopLogger struct{}

// NopLogger discards everything.
func NopLogger() Logger { return noopLogger{} }

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) With(...Field) Logger                  { return l }
