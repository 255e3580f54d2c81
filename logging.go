package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logFileName is the production log inside ~/.namecritic/logs
const logFileName = "namecritic.log"

// NewLogger returns the diagnostics logger. The default writes JSON to the
// log file so terminal progress stays clean; verbose logs to stderr at debug.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
		return config.Build()
	}

	dir, err := AppDir()
	if err != nil {
		return zap.NewNop(), nil
	}
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{filepath.Join(logDir, logFileName)}
	config.ErrorOutputPaths = []string{filepath.Join(logDir, logFileName)}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config.Build()
}
