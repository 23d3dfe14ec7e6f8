package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/harrison/greenlight/internal/models"
)

// lockRetryDelay is how often a blocked audit append re-attempts the lock.
const lockRetryDelay = 10 * time.Millisecond

// AuditLog appends review results to a JSONL file, one object per line.
// Appends are guarded by a file lock so review loops in separate processes
// can share one log without interleaving lines.
type AuditLog struct {
	path string
	lock *flock.Flock
}

// NewAuditLog prepares an audit log at path. Parent directories are
// created eagerly so the first append cannot fail on them.
func NewAuditLog(path string) (*AuditLog, error) {
	if path == "" {
		return nil, errors.New("audit log requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &AuditLog{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Record appends one review result.
func (a *AuditLog) Record(ctx context.Context, result *models.ReviewResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	data = append(data, '\n')

	locked, err := a.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock audit log: %w", err)
	}
	if !locked {
		return errors.New("lock audit log: not acquired")
	}
	defer a.lock.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append to audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}
	return nil
}

// Path returns the log file location.
func (a *AuditLog) Path() string {
	return a.path
}
