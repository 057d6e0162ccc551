// Package sessionlog appends hook activity to the plain-text and JSONL
// logs under .claude/logs/. Writes are append-only; a log that grows past
// its size cap is gzipped aside and restarted.
package sessionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"wiggum/internal/constants"
)

// DefaultMaxSize is the rotation threshold for log files.
const DefaultMaxSize = 10 << 20

// Log is an append-only log file with size-based rotation.
type Log struct {
	mu      sync.Mutex
	path    string
	maxSize int64
}

// New returns a log at path with the default rotation threshold.
func New(path string) *Log {
	return &Log{path: path, maxSize: DefaultMaxSize}
}

// NewWithMaxSize returns a log that rotates once the file reaches maxSize
// bytes. A maxSize of zero or less disables rotation.
func NewWithMaxSize(path string, maxSize int64) *Log {
	return &Log{path: path, maxSize: maxSize}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes data to the end of the log, creating the file and its
// directory as needed.
func (l *Log) Append(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), constants.DirMode); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := l.rotateLocked(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append to log: %w", err)
	}
	return nil
}

// AppendString writes s to the end of the log.
func (l *Log) AppendString(s string) error {
	return l.Append([]byte(s))
}

// AppendJSON writes v as one JSONL record.
func (l *Log) AppendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode log record: %w", err)
	}
	return l.Append(append(data, '\n'))
}

// rotateLocked moves an oversized log aside as <path>.<timestamp>.gz and
// lets the next write start a fresh file.
func (l *Log) rotateLocked() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := os.Stat(l.path)
	if err != nil || info.Size() < l.maxSize {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to read log for rotation: %w", err)
	}

	rotated := fmt.Sprintf("%s.%s.gz", l.path, time.Now().UTC().Format("20060102T150405"))
	f, err := os.Create(rotated)
	if err != nil {
		return fmt.Errorf("failed to create rotated log: %w", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to compress rotated log: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to compress rotated log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close rotated log: %w", err)
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to remove rotated log: %w", err)
	}
	return nil
}

// Timestamp returns the current UTC time in the ISO-8601 form the log
// files use, with microsecond precision.
func Timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}
