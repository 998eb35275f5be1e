package logging

import (
	"bytes"
	"io"
)

// MultiWriter routes formatted lines by level.
// With debug enabled, DEBUG/INFO go to the file only and WARN/ERROR go to
// both console and file. Otherwise everything goes to the console.
type MultiWriter struct {
	consoleWriter io.Writer
	fileWriter    io.Writer
	debugEnabled  bool
}

// NewMultiWriter creates a new MultiWriter
func NewMultiWriter(consoleWriter, fileWriter io.Writer, debugEnabled bool) *MultiWriter {
	return &MultiWriter{
		consoleWriter: consoleWriter,
		fileWriter:    fileWriter,
		debugEnabled:  debugEnabled,
	}
}

// Write implements io.Writer
func (m *MultiWriter) Write(p []byte) (int, error) {
	if !m.debugEnabled || m.fileWriter == nil {
		return m.consoleWriter.Write(p)
	}

	n, fileErr := m.fileWriter.Write(p)

	switch extractLevel(p) {
	case "WARN", "ERROR":
		if _, err := m.consoleWriter.Write(p); err != nil && fileErr == nil {
			return n, err
		}
	}
	return n, fileErr
}

// extractLevel reads LEVEL out of "[YYYY-MM-DD HH:MM:SS] LEVEL [component] ..."
func extractLevel(p []byte) string {
	end := bytes.Index(p, []byte("] "))
	if end == -1 {
		return ""
	}
	rest := p[end+2:]
	space := bytes.IndexByte(rest, ' ')
	if space == -1 {
		return ""
	}
	return string(rest[:space])
}
