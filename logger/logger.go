// Package logger wraps zap for structured logging.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFile is the JSON log written next to the working directory.
const DefaultFile = "scour.log"

// Options configure the shared logger.
type Options struct {
	// Level is a zap level name such as "debug" or "info".
	Level string

	// File receives JSON lines. Empty means DefaultFile; "-" disables the file.
	File string
}

var (
	log     *zap.Logger
	once    sync.Once
	initErr error
)

// Init builds the shared logger: a console core on stderr teed with a JSON
// file core. Only the first call has an effect.
func Init(opts Options) error {
	once.Do(func() {
		log, initErr = build(opts)
	})
	return initErr
}

func build(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level)}

	path := opts.File
	if path == "" {
		path = DefaultFile
	}
	if path != "-" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(file), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// Get returns the shared logger, initialising it with defaults if needed.
// If initialisation failed, a no-op logger is returned.
func Get() *zap.Logger {
	_ = Init(Options{})
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Sync ensures buffered logs are written before the application exits.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// reset discards the shared logger. Tests only.
func reset() {
	Sync()
	log = nil
	initErr = nil
	once = sync.Once{}
}
