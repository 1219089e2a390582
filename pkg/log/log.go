// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package log wraps a zap SugaredLogger for the long-running dashboard
// server. Pipeline commands report progress on stdout instead; only the
// server logs structurally.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = zap.NewNop().Sugar()

// Init configures the process logger. level is a zap level name
// ("debug", "info", ...); format is "console" or "json".
func Init(level, format string) error {
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = logLevel
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	sugar = logger.Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = sugar.Sync()
}

// Infof logs a formatted info message.
func Infof(template string, args ...any) {
	sugar.Infof(template, args...)
}

// Infow logs an info message with key-value context.
func Infow(msg string, keysAndValues ...any) {
	sugar.Infow(msg, keysAndValues...)
}

// Warnw logs a warning with key-value context.
func Warnw(msg string, keysAndValues ...any) {
	sugar.Warnw(msg, keysAndValues...)
}

// Errorw logs an error with key-value context.
func Errorw(msg string, keysAndValues ...any) {
	sugar.Errorw(msg, keysAndValues...)
}
