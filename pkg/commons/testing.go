// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// MockLogger is a reusable Logger test double that records messages by
// level so tests can assert on warnings/errors without a real zap sink.
type MockLogger struct {
	mu             sync.Mutex
	DebugMessages  []string
	InfoMessages   []string
	WarnMessages   []string
	ErrorMessages  []string
}

// NewMockLogger returns an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		DebugMessages: make([]string, 0),
		InfoMessages:  make([]string, 0),
		WarnMessages:  make([]string, 0),
		ErrorMessages: make([]string, 0),
	}
}

func (m *MockLogger) Level() zapcore.Level { return zapcore.DebugLevel }

func (m *MockLogger) Debug(args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DebugMessages = append(m.DebugMessages, fmt.Sprint(args...))
}
func (m *MockLogger) Debugf(template string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DebugMessages = append(m.DebugMessages, fmt.Sprintf(template, args...))
}
func (m *MockLogger) Info(args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoMessages = append(m.InfoMessages, fmt.Sprint(args...))
}
func (m *MockLogger) Infof(template string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoMessages = append(m.InfoMessages, fmt.Sprintf(template, args...))
}
func (m *MockLogger) Warn(args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarnMessages = append(m.WarnMessages, fmt.Sprint(args...))
}
func (m *MockLogger) Warnf(template string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarnMessages = append(m.WarnMessages, fmt.Sprintf(template, args...))
}
func (m *MockLogger) Error(args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorMessages = append(m.ErrorMessages, fmt.Sprint(args...))
}
func (m *MockLogger) Errorf(template string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorMessages = append(m.ErrorMessages, fmt.Sprintf(template, args...))
}
func (m *MockLogger) DPanic(args ...interface{})                   {}
func (m *MockLogger) DPanicf(template string, args ...interface{}) {}
func (m *MockLogger) Panic(args ...interface{})                    {}
func (m *MockLogger) Panicf(template string, args ...interface{})  {}
func (m *MockLogger) Fatal(args ...interface{})                    {}
func (m *MockLogger) Fatalf(template string, args ...interface{})  {}

func (m *MockLogger) Benchmark(functionName string, duration time.Duration) {}

func (m *MockLogger) Tracef(ctx context.Context, format string, args ...interface{}) {}

func (m *MockLogger) Sync() error { return nil }

// HasWarning reports whether any recorded warning contains substr.
func (m *MockLogger) HasWarning(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.WarnMessages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
