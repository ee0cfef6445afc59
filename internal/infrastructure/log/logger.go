package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/spf13/viper"
	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

var (
	defaultOnce   sync.Once
	defaultLogger *zap.Logger
	defaultErr    error
)

// logLevel reads agent.log_level. Unknown values fall back to info.
func logLevel() zap.AtomicLevel {
	lvl, err := zapcore.ParseLevel(viper.GetString(config.AgentLogLevel))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	return zap.NewAtomicLevelAt(lvl)
}

// DefaultConfig returns a zap.Config configured with ECS-compatible encoders.
func DefaultConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig = ecszap.ECSCompatibleEncoderConfig(cfg.EncoderConfig)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.Level = logLevel()
	if id := viper.GetString(config.AgentID); id != "" {
		cfg.InitialFields = map[string]interface{}{"agent.id": id}
	}
	return cfg
}

// InitDefault initializes the process-wide default logger once.
func InitDefault(opts ...zap.Option) error {
	defaultOnce.Do(func() {
		defaultLogger, defaultErr = DefaultConfig().Build(opts...)
	})
	return defaultErr
}

// MustInitDefault is like InitDefault, but exits the process on failure.
func MustInitDefault(opts ...zap.Option) {
	if err := InitDefault(opts...); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialize default logger: %v\n", err)
		os.Exit(1)
	}
}

// Default returns the default logger, initializing it if needed. A logger
// that failed to build degrades to a no-op logger.
func Default() *Logger {
	if defaultLogger == nil {
		if err := InitDefault(); err != nil || defaultLogger == nil {
			return &Logger{zap.NewNop()}
		}
	}
	return &Logger{defaultLogger}
}

// Sync flushes any buffered logs on the default logger.
func Sync() error {
	if defaultLogger != nil {
		return defaultLogger.Sync()
	}
	return nil
}

// NewECSLogger builds a new, independent ECS-compatible logger.
func NewECSLogger(opts ...zap.Option) (*Logger, error) {
	l, err := DefaultConfig().Build(opts...)
	if err != nil {
		return nil, err
	}
	return &Logger{l}, nil
}

func MustNewECSLogger(opts ...zap.Option) *Logger {
	l, err := NewECSLogger(opts...)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

// ForDevice tags every entry with the thing name so logs of several devices
// can share one sink.
func (l *Logger) ForDevice(thingName string) *Logger {
	return l.With(zap.String("device.thing_name", thingName))
}
