package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SourceLocation captures the source code location of a log call
type SourceLocation struct {
	File     string
	Line     int
	Function string
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Component string
	Source    SourceLocation
	Message   string
	Context   map[string]interface{}
}

// LogFormatter formats log entries into single lines
type LogFormatter struct{}

// NewLogFormatter creates a new log formatter
func NewLogFormatter() *LogFormatter {
	return &LogFormatter{}
}

// Format renders an entry as
// [YYYY-MM-DD HH:MM:SS] LEVEL [component] file.go:line function message key=value
// Context keys are sorted so output is stable.
func (f *LogFormatter) Format(entry LogEntry) string {
	var sb strings.Builder

	sb.WriteString("[")
	sb.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05"))
	sb.WriteString("] ")
	sb.WriteString(entry.Level.String())
	sb.WriteString(" [")
	sb.WriteString(entry.Component)
	sb.WriteString("] ")
	fmt.Fprintf(&sb, "%s:%d %s ", entry.Source.File, entry.Source.Line, entry.Source.Function)
	sb.WriteString(sanitizeMessage(entry.Message))

	if len(entry.Context) > 0 {
		keys := make([]string, 0, len(entry.Context))
		for k := range entry.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, sanitizeMessage(fmt.Sprint(entry.Context[k])))
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// sanitizeMessage replaces control characters other than \n and \t so user
// supplied text (chat, file names) cannot forge log lines
func sanitizeMessage(msg string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, msg)
}
