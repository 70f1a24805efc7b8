package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"licensesync/internal/license"
)

type rowFailureDump struct {
	RunID          string            `json:"run_id"`
	RowIndex       int               `json:"row_index"`
	NaturalKeyHash string            `json:"natural_key_hash"`
	Error          string            `json:"error"`
	Raw            license.RawRecord `json:"raw"`
}

type runFailureDump struct {
	RunID    string    `json:"run_id"`
	FromDate string    `json:"from_date"`
	ToDate   string    `json:"to_date"`
	Stage    string    `json:"stage"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// writeDump writes v as indented JSON into dir and returns the file path.
// An empty dir disables dumps.
func writeDump(dir, name string, v any) (string, error) {
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dump dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode dump: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write dump: %w", err)
	}
	return path, nil
}
