package logging

import (
	"fmt"
	"io"
	"os"
)

// Options selects where the process logs go
type Options struct {
	Level        string
	DebugEnabled bool
	File         string
	MaxSizeMB    int
	MaxBackups   int
}

// Setup builds the root logger. When the debug file cannot be opened it
// falls back to console-only output and reports why on stderr.
// The returned closer flushes the file and must be called on shutdown.
func Setup(component string, opts Options) (*Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if opts.DebugEnabled && opts.File != "" {
		fw, err := NewFileWriter(opts.File, opts.MaxSizeMB, opts.MaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] debug log disabled: %v\n", err)
		} else {
			out = NewMultiWriter(os.Stdout, fw, true)
			closer = fw
		}
	}

	return NewLogger(component, ParseLevel(opts.Level), out), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
