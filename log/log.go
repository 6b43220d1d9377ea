//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package log provides the package-level logger used across the repository.
package log

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by SetLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

var (
	zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	// Default is the logger used by the package-level helpers.
	Default Logger = newDefault()
)

// Logger is the logging surface used by the repository.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

func newDefault() *zap.SugaredLogger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "lvl",
		NameKey:        "name",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr),
		zapLevel,
	)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetLevel changes the level of the default logger. Unknown names fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelWarn, "warning":
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LevelFatal:
		zapLevel.SetLevel(zapcore.FatalLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// Debugf logs at debug level.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warnf logs at warn level.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }

// Fatalf logs at fatal level and exits.
func Fatalf(format string, args ...any) { Default.Fatalf(format, args...) }
