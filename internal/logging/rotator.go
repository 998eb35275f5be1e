package logging

import (
	"fmt"
	"os"
)

// LogRotator renames a log file out of the way once it grows past a threshold
type LogRotator struct {
	basePath   string
	maxSizeMB  int
	maxBackups int
}

// NewLogRotator creates a rotator for basePath
func NewLogRotator(basePath string, maxSizeMB, maxBackups int) *LogRotator {
	return &LogRotator{
		basePath:   basePath,
		maxSizeMB:  maxSizeMB,
		maxBackups: maxBackups,
	}
}

// ShouldRotate reports whether currentSize reached maxSizeMB
func (r *LogRotator) ShouldRotate(currentSize int64) bool {
	threshold := int64(r.maxSizeMB) * 1024 * 1024
	return currentSize >= threshold
}

// Rotate shifts siteadmin.log.N to .N+1, drops the oldest backup and moves
// the live file to .1. With maxBackups == 0 the live file is simply removed.
func (r *LogRotator) Rotate() error {
	if r.maxBackups == 0 {
		if err := os.Remove(r.basePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove current log file: %w", err)
		}
		return nil
	}

	oldest := r.backupPath(r.maxBackups)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete oldest backup %s: %w", oldest, err)
	}

	for i := r.maxBackups - 1; i >= 1; i-- {
		from, to := r.backupPath(i), r.backupPath(i+1)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to rename backup %s to %s: %w", from, to, err)
		}
	}

	if _, err := os.Stat(r.basePath); err == nil {
		if err := os.Rename(r.basePath, r.backupPath(1)); err != nil {
			return fmt.Errorf("failed to rename current log %s: %w", r.basePath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat current log file: %w", err)
	}

	return nil
}

func (r *LogRotator) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", r.basePath, n)
}
