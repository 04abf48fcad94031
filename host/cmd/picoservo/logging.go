package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLoggerConfig returns a console config writing to stderr so stdout
// stays free for command output. verbose lowers the level to debug.
func newLoggerConfig(verbose bool) zap.Config {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// newLogger builds the CLI logger, falling back to a no-op logger
func newLogger(verbose bool) *zap.SugaredLogger {
	l, err := newLoggerConfig(verbose).Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Named("picoservo").Sugar()
}
