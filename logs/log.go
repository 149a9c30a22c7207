package logs

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels, ordered from most to least verbose.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarning
	LevelError
)

// Logger is the printf-style logger injected into components.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debug(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *zapLogger) Info(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *zapLogger) Warn(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *zapLogger) Error(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }

var (
	mu     sync.RWMutex
	global Logger = NewNop()
)

// New builds a zap backed Logger at the given level name ("debug", "info", "warn", "error").
func New(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(ParseLevel(level)))
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: z.Sugar()}, nil
}

// NewNop 丢弃所有输出，测试用
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

// ParseLevel maps a level name to one of the Level constants. Unknown names map to LevelInfo.
func ParseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace", "verbose":
		return LevelDebug
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func zapLevel(level int) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogger 替换包级 logger，nil 时退回 Nop
func SetLogger(l Logger) {
	if l == nil {
		l = NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// Default returns the package level logger.
func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// 包级别的日志方法
func Debug(format string, v ...interface{}) { Default().Debug(format, v...) }
func Info(format string, v ...interface{})  { Default().Info(format, v...) }
func Warn(format string, v ...interface{})  { Default().Warn(format, v...) }
func Error(format string, v ...interface{}) { Default().Error(format, v...) }
