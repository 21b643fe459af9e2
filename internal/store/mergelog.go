package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// MergeLog is the append-only resolution audit stream: one record per
// resolved cluster or stub. Appends are safe under concurrency; order
// among records is not significant.
type MergeLog struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	records []model.MergeRecord
}

func NewMergeLog(w io.Writer) *MergeLog {
	return &MergeLog{w: w}
}

// OpenMergeLog opens (or creates) an append-only log file.
func OpenMergeLog(path string) (*MergeLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open merge log '%s': %w", path, err)
	}
	return &MergeLog{w: f, closer: f}, nil
}

func (l *MergeLog) Append(rec model.MergeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal merge record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if l.w != nil {
		if _, err := l.w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to append merge record: %w", err)
		}
	}
	return nil
}

// Records returns a snapshot of everything appended so far.
func (l *MergeLog) Records() []model.MergeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.MergeRecord(nil), l.records...)
}

func (l *MergeLog) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
