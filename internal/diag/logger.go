// Package diag builds the structured logger used across a run.
package diag

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configure NewLogger.
type Options struct {
	// Level is the minimum level written, one of debug, info, warn, error
	Level string

	// Quiet restricts console output to errors; the log file is unaffected
	Quiet bool

	// File is the durable log path; empty disables file logging
	File string

	// MaxBytes is the rotation threshold of the log file
	MaxBytes int64

	// Console receives human-readable output, defaults to stderr
	Console io.Writer
}

// NewLogger returns a logger writing human-readable lines to the console and JSON lines
// to a rotating log file. The returned function flushes and closes the file.
func NewLogger(opts Options) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel

	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing log level: %w", err)
		}

		level = parsed
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := level
	if opts.Quiet {
		consoleLevel = zapcore.ErrorLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(zapcore.AddSync(console)), consoleLevel),
	}

	closer := func() error { return nil }

	if opts.File != "" {
		file := NewRotatingFile(opts.File, opts.MaxBytes)

		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level))

		closer = func() error {
			if err := file.Sync(); err != nil {
				return fmt.Errorf("syncing log file: %w", err)
			}

			return file.Close()
		}
	}

	return zap.New(zapcore.NewTee(cores...)), closer, nil
}
