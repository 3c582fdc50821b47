package publish

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultLocalRecordPath is used when no path is configured.
const DefaultLocalRecordPath = "material_logs.txt"

const localTimeFormat = "2006-01-02 15:04:05"

// LocalRecord is an append-only text file of results that could not be
// delivered. Each line reads "<timestamp> - <label>: <value>".
type LocalRecord struct {
	mu   sync.Mutex
	path string
}

// NewLocalRecord returns a record that appends to path. The file is created
// on first use.
func NewLocalRecord(path string) *LocalRecord {
	if path == "" {
		path = DefaultLocalRecordPath
	}
	return &LocalRecord{path: path}
}

// Path returns the file the record appends to.
func (l *LocalRecord) Path() string {
	return l.path
}

// Append writes one line.
func (l *LocalRecord) Append(at time.Time, label, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open local record: %w", err)
	}
	line := fmt.Sprintf("%s - %s: %s\n", at.Format(localTimeFormat), label, value)
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append local record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close local record: %w", err)
	}
	return nil
}
