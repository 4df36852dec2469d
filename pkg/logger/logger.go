// Package logger wraps zap with a keyvals-style API used across the service.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the service-wide structured logger.
type Logger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
}

// New builds a logger for the given level and environment. Production gets
// JSON output, everything else gets the console encoder.
func New(level, environment string) *Logger {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if environment == "production" {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "timestamp"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zapLevel)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &Logger{sugar: base.Sugar(), base: base}
}

// Zap exposes the underlying *zap.Logger for packages that want typed fields.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// With returns a logger with keyvals attached to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sugar: l.sugar.With(keysAndValues...),
		base:  l.base,
	}
}

// ForRequest returns a logger scoped to one request.
func (l *Logger) ForRequest(requestID, method, path string) *Logger {
	return l.With("request_id", requestID, "method", method, "path", path)
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// Sugared-style aliases kept for call sites that prefer the zap spelling.

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
