// Package export renders stored license rows as CSV and ships the file to an
// SFTP drop directory.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"licensesync/internal/license"
)

// Header is the CSV header row: the canonical columns followed by the
// server-side write timestamp.
var Header = append(append([]string(nil), license.Columns...), "_fetched_at")

// WriteCSV writes rows with a header. Null values are empty cells.
func WriteCSV(w io.Writer, rows []license.StoredRecord) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		cells := append(row.Strings(), row.FetchedAt)
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes rows to path, replacing any existing file only once the
// new content is complete.
func WriteFile(path string, rows []license.StoredRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".licensesync-export-*.csv")
	if err != nil {
		return fmt.Errorf("create temp export: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("finalize export: %w", err)
	}
	return nil
}
