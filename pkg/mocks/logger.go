package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/framesource/pkg/ports"
)

// Logger records formatted messages per level.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry is one recorded message.
type LogEntry struct {
	Level   ports.LogLevel
	Message string
}

func (m *Logger) record(level ports.LogLevel, msg string, args []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, LogEntry{Level: level, Message: fmt.Sprintf(msg, args...)})
}

func (m *Logger) Debug(msg string, args ...interface{}) { m.record(ports.LevelDebug, msg, args) }
func (m *Logger) Info(msg string, args ...interface{})  { m.record(ports.LevelInfo, msg, args) }
func (m *Logger) Warn(msg string, args ...interface{})  { m.record(ports.LevelWarn, msg, args) }
func (m *Logger) Error(msg string, args ...interface{}) { m.record(ports.LevelError, msg, args) }

// WithComponent returns the same recorder.
func (m *Logger) WithComponent(component string) ports.Logger {
	return m
}

// Entries returns the messages recorded at level.
func (m *Logger) Entries(level ports.LogLevel) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Contains reports whether any message at level contains substr.
func (m *Logger) Contains(level ports.LogLevel, substr string) bool {
	for _, msg := range m.Entries(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

var _ ports.Logger = (*Logger)(nil)
