package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrNotReadable is returned by Read on loggers that only write.
var ErrNotReadable = errors.New("audit log is not readable")

// Reader reads events back.
type Reader interface {
	Read(f Filter) ([]*Event, error)
}

const (
	currentFile   = "audit.log"
	rotatedGlob   = "audit-*.log"
	rotatedLayout = "20060102-150405.000000000"
)

// FileLogger implements audit logging to files
type FileLogger struct {
	basePath string
	maxSize  int64
	maxFiles int

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// FileLoggerConfig configures the file logger
type FileLoggerConfig struct {
	BasePath string // Base directory for audit logs
	MaxSize  int64  // Max file size in bytes (default: 10MB)
	MaxFiles int    // Max number of rotated files to keep (default: 5)
}

// NewFileLogger creates a new file-based audit logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	l := &FileLogger{
		basePath: config.BasePath,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
	}
	if l.maxSize <= 0 {
		l.maxSize = 10 * 1024 * 1024
	}
	if l.maxFiles <= 0 {
		l.maxFiles = 5
	}

	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	file, err := os.OpenFile(filepath.Join(l.basePath, currentFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	l.file = file
	l.encoder = json.NewEncoder(file)
	return nil
}

// rotate renames the current file aside and opens a fresh one. Caller holds mu.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	l.file = nil

	rotated := filepath.Join(l.basePath, "audit-"+time.Now().UTC().Format(rotatedLayout)+".log")
	if err := os.Rename(filepath.Join(l.basePath, currentFile), rotated); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}
	if err := l.cleanup(); err != nil {
		return err
	}
	return l.open()
}

// cleanup removes the oldest rotated files beyond maxFiles.
func (l *FileLogger) cleanup() error {
	files, err := l.rotatedFiles()
	if err != nil {
		return err
	}
	for len(files) > l.maxFiles {
		if err := os.Remove(files[0]); err != nil {
			return fmt.Errorf("failed to remove old audit log %s: %w", files[0], err)
		}
		files = files[1:]
	}
	return nil
}

// rotatedFiles lists rotated files oldest first.
func (l *FileLogger) rotatedFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(l.basePath, rotatedGlob))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Log appends the event to the current file, rotating it first when it
// has reached the size limit.
func (l *FileLogger) Log(ctx context.Context, e *Event) error {
	stamp(e)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("audit log is closed")
	}
	if info, err := l.file.Stat(); err == nil && info.Size() >= l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}
	if err := l.encoder.Encode(e); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// Close closes the current file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Read returns the events matching f across the rotated files and the
// current one, oldest first.
func (l *FileLogger) Read(f Filter) ([]*Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := l.rotatedFiles()
	if err != nil {
		return nil, err
	}
	files = append(files, filepath.Join(l.basePath, currentFile))

	var events []*Event
	for _, path := range files {
		events, err = readFile(path, f, events)
		if err != nil {
			return nil, err
		}
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[len(events)-f.Limit:]
	}
	return events, nil
}

func readFile(path string, f Filter, events []*Event) ([]*Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return events, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode audit log entry in %s: %w", path, err)
		}
		if f.Match(&e) {
			events = append(events, &e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log %s: %w", path, err)
	}
	return events, nil
}
