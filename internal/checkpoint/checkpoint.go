// Package checkpoint persists the date boundary of the last completed
// ingestion window.
package checkpoint

import (
	"context"
	"strings"
	"sync"
	"time"

	"licensesync/internal/services"
)

// LastFetchToKey is the single well-known key holding the checkpoint.
const LastFetchToKey = "last_fetch_to"

const dateLayout = "2006-01-02"

// KV is the minimal key-value capability a backing store must provide. Get
// reports ok=false when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Store reads and writes the sync checkpoint.
type Store struct {
	kv KV
}

// New wraps a key-value backend.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// GetLast returns the last synced date. ok is false on the first run.
func (s *Store) GetLast(ctx context.Context) (string, bool, error) {
	value, ok, err := s.kv.Get(ctx, LastFetchToKey)
	if err != nil {
		return "", false, services.Wrap(services.ErrTransport, "checkpoint", "get", "", err)
	}
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// SetLast records date as the new checkpoint. The last write wins.
func (s *Store) SetLast(ctx context.Context, date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return services.Wrap(services.ErrValidation, "checkpoint", "set", "date must be YYYY-MM-DD", err)
	}
	if err := s.kv.Set(ctx, LastFetchToKey, date); err != nil {
		return services.Wrap(services.ErrTransport, "checkpoint", "set", "", err)
	}
	return nil
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV returns an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
