package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	ErrInvalidLevel    = errors.New("invalid logging level")
	ErrInvalidEncoding = errors.New("invalid log encoding format")
)

// Leveled key/value logger used by every component.
type Interface interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	With(fields ...any) Interface
	Sync() error
}

type Config struct {
	Level    string
	Encoding string
}

// Logger implements Interface on top of zap.
type Logger struct {
	zapLogger *zap.Logger
}

var logLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Builds a logger writing to stderr. Stdout is left to report output.
func New(config Config) (Interface, error) {
	if config.Level == "" {
		config.Level = "info"
	}
	if config.Encoding == "" {
		config.Encoding = "console"
	}

	level, ok := logLevels[strings.ToLower(config.Level)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, config.Level)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(config.Encoding) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEncoding, config.Encoding)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return &Logger{zapLogger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// Wraps an existing zap logger.
func NewFromZap(zapLogger *zap.Logger) Interface {
	return &Logger{zapLogger: zapLogger}
}

func (l *Logger) Debug(msg string, fields ...any) {
	l.zapLogger.Debug(msg, toZapFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.zapLogger.Info(msg, toZapFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.zapLogger.Warn(msg, toZapFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...any) {
	l.zapLogger.Error(msg, toZapFields(fields)...)
}

// With creates a child logger carrying the given fields.
func (l *Logger) With(fields ...any) Interface {
	return &Logger{zapLogger: l.zapLogger.With(toZapFields(fields)...)}
}

func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

// Converts alternating key/value pairs to zap fields. zap.Field values pass
// through unchanged and a trailing key without a value is dropped.
func toZapFields(fields []any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	zapFields := make([]zap.Field, 0, len(fields)/2+1)
	for i := 0; i < len(fields); i++ {
		switch field := fields[i].(type) {
		case zap.Field:
			zapFields = append(zapFields, field)
		case string:
			if i+1 >= len(fields) {
				continue
			}
			zapFields = append(zapFields, zap.Any(field, fields[i+1]))
			i++
		default:
			zapFields = append(zapFields, zap.Any(fmt.Sprintf("field_%d", i), field))
		}
	}
	return zapFields
}
