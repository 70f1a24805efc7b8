package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"licensesync/internal/services"
)

// acquireRunLock takes the cross-process ingestion lock. The returned func
// releases it.
func acquireRunLock(path string) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrRunInProgress, "ingest", "lock", path, nil)
	}
	return lock.Unlock, nil
}
