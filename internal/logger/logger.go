package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log encodings accepted by New
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures a process logger
type Options struct {
	Service string
	Debug   bool
	Format  string // json (default) or console
}

// New builds the process logger. Every entry carries the service name so API
// and worker output can share one sink.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	var config zap.Config
	switch opts.Format {
	case "", FormatJSON:
		config = zap.NewProductionConfig()
		config.Encoding = FormatJSON
		config.EncoderConfig = zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
	case FormatConsole:
		config = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	config.Level = zap.NewAtomicLevelAt(level)
	config.DisableStacktrace = false
	if opts.Service != "" {
		config.InitialFields = map[string]any{"service": opts.Service}
	}
	return config.Build()
}

// Sync flushes buffered entries, ignoring the EINVAL some terminals return
func Sync(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
