package logging

import "strings"

// BadgerLogger adapts Logger to badger's Logger interface so the badger
// backend writes through the same formatter and routing as everything else.
type BadgerLogger struct {
	l *Logger
}

// NewBadgerLogger wraps l
func NewBadgerLogger(l *Logger) *BadgerLogger {
	return &BadgerLogger{l: l}
}

// badger terminates its messages with a newline; the formatter adds its own
func trim(format string) string {
	return strings.TrimRight(format, "\n")
}

func (b *BadgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(trim(format), args...)
}

func (b *BadgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(trim(format), args...)
}

func (b *BadgerLogger) Infof(format string, args ...interface{}) {
	b.l.Info(trim(format), args...)
}

func (b *BadgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(trim(format), args...)
}
