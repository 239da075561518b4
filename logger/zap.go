package logger

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap logger to the Logger interface. Messages are
// formatted with fmt before they reach zap; the level filter is applied
// through an AtomicLevel so SetLevel works after construction.
type ZapLogger struct {
	mu     sync.RWMutex
	sugar  *zap.SugaredLogger
	level  zap.AtomicLevel
	name   string
	output io.Writer
}

// NewZapLogger builds a JSON zap logger writing to w
func NewZapLogger(name string, w io.Writer) *ZapLogger {
	l := &ZapLogger{
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
		name:   name,
		output: w,
	}
	l.build()
	return l
}

func (l *ZapLogger) build() {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(l.output),
		l.level,
	)
	z := zap.New(core)
	if l.name != "" {
		z = z.Named(l.name)
	}
	l.sugar = z.Sugar()
}

func (l *ZapLogger) logger() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar
}

func (l *ZapLogger) Debug(format string, args ...any) {
	l.logger().Debug(fmt.Sprintf(format, args...))
}

func (l *ZapLogger) Info(format string, args ...any) {
	l.logger().Info(fmt.Sprintf(format, args...))
}

func (l *ZapLogger) Warn(format string, args ...any) {
	l.logger().Warn(fmt.Sprintf(format, args...))
}

func (l *ZapLogger) Error(format string, args ...any) {
	l.logger().Error(fmt.Sprintf(format, args...))
}

// SetLevel maps LogLevel onto zap levels. LogLevelNone silences everything
// below fatal.
func (l *ZapLogger) SetLevel(level LogLevel) {
	switch level {
	case LogLevelNone:
		l.level.SetLevel(zapcore.FatalLevel)
	case LogLevelError:
		l.level.SetLevel(zapcore.ErrorLevel)
	case LogLevelWarn:
		l.level.SetLevel(zapcore.WarnLevel)
	case LogLevelInfo:
		l.level.SetLevel(zapcore.InfoLevel)
	default:
		l.level.SetLevel(zapcore.DebugLevel)
	}
}

func (l *ZapLogger) GetLevel() LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return LogLevelDebug
	case zapcore.InfoLevel:
		return LogLevelInfo
	case zapcore.WarnLevel:
		return LogLevelWarn
	case zapcore.ErrorLevel:
		return LogLevelError
	default:
		return LogLevelNone
	}
}

func (l *ZapLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.build()
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.logger().Sync()
}
