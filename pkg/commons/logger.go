// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the sugared, leveled logging contract used throughout this
// module. It intentionally mirrors the teacher's commons.Logger shape so
// that mock/test doubles are drop-in compatible.
type Logger interface {
	Level() zapcore.Level

	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	DPanic(args ...interface{})
	DPanicf(template string, args ...interface{})
	Panic(args ...interface{})
	Panicf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	Benchmark(functionName string, duration time.Duration)
	Tracef(ctx context.Context, format string, args ...interface{})
	Sync() error
}

type applicationLogger struct {
	*zap.SugaredLogger
	level zapcore.Level
}

// Option configures NewApplicationLogger.
type Option func(*options)

type options struct {
	filePath string
	level    zapcore.Level
	json     bool
}

// WithFilePath enables a rotating file sink (via lumberjack) in addition to stderr.
func WithFilePath(path string) Option {
	return func(o *options) { o.filePath = path }
}

// WithLevel sets the minimum enabled log level. Defaults to InfoLevel.
func WithLevel(level zapcore.Level) Option {
	return func(o *options) { o.level = level }
}

// WithJSON switches the stderr encoder from console to JSON.
func WithJSON(enabled bool) Option {
	return func(o *options) { o.json = enabled }
}

// NewApplicationLogger builds a zap-backed Logger. With no options it logs
// human-readable console output at Info level to stderr.
func NewApplicationLogger(opts ...Option) Logger {
	o := &options{level: zapcore.InfoLevel}
	for _, opt := range opts {
		opt(o)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEncoder zapcore.Encoder
	if o.json {
		consoleEncoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), o.level),
	}

	if o.filePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   o.filePath,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), o.level))
	}

	core := zapcore.NewTee(cores...)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &applicationLogger{SugaredLogger: base.Sugar(), level: o.level}
}

func (l *applicationLogger) Level() zapcore.Level { return l.level }

func (l *applicationLogger) Benchmark(functionName string, duration time.Duration) {
	l.Infof("benchmark: %s took %s", functionName, duration)
}

func (l *applicationLogger) Tracef(ctx context.Context, format string, args ...interface{}) {
	l.Debugf(format, args...)
}
