package logging

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	fileBufferSize = 64 * 1024
	flushInterval  = 5 * time.Second
)

// FileWriter is a buffered, rotating, goroutine-safe log file
type FileWriter struct {
	path       string
	file       *os.File
	buffer     *bufio.Writer
	rotator    *LogRotator
	mu         sync.Mutex
	flushTimer *time.Timer
	closed     bool
}

// NewFileWriter opens path for appending and starts the periodic flush
func NewFileWriter(path string, maxSizeMB int, maxBackups int) (*FileWriter, error) {
	file, err := openLogFile(path)
	if err != nil {
		return nil, err
	}

	fw := &FileWriter{
		path:    path,
		file:    file,
		buffer:  bufio.NewWriterSize(file, fileBufferSize),
		rotator: NewLogRotator(path, maxSizeMB, maxBackups),
	}

	fw.flushTimer = time.AfterFunc(flushInterval, func() {
		fw.mu.Lock()
		defer fw.mu.Unlock()
		if !fw.closed {
			fw.flushInternal()
			fw.flushTimer.Reset(flushInterval)
		}
	})

	return fw, nil
}

func openLogFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

// Write implements io.Writer
func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return 0, fmt.Errorf("file writer is closed")
	}
	return fw.buffer.Write(p)
}

// Flush writes buffered lines to disk and rotates if the file got too big
func (fw *FileWriter) Flush() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return fmt.Errorf("file writer is closed")
	}
	return fw.flushInternal()
}

// Caller must hold the mutex.
func (fw *FileWriter) flushInternal() error {
	if err := fw.buffer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] Failed to flush log buffer: %v\n", err)
		return err
	}

	info, err := fw.file.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] Failed to stat log file: %v\n", err)
		return err
	}

	if fw.rotator.ShouldRotate(info.Size()) {
		if err := fw.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] Failed to rotate log file: %v\n", err)
			return err
		}
	}
	return nil
}

// Caller must hold the mutex.
func (fw *FileWriter) rotate() error {
	if err := fw.file.Close(); err != nil {
		return fmt.Errorf("failed to close file before rotation: %w", err)
	}

	rotateErr := fw.rotator.Rotate()

	// Reopen even when rotation failed so logging continues
	file, err := openLogFile(fw.path)
	if err != nil {
		return err
	}
	fw.file = file
	fw.buffer = bufio.NewWriterSize(file, fileBufferSize)

	return rotateErr
}

// Close flushes and closes the file. Safe to call twice.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return nil
	}
	fw.closed = true

	if fw.flushTimer != nil {
		fw.flushTimer.Stop()
	}
	if err := fw.buffer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] Failed to flush buffer during close: %v\n", err)
	}
	if err := fw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
