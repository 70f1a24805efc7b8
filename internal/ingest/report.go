package ingest

import "time"

// RunOptions adjusts a single run. The zero value is a normal incremental run.
type RunOptions struct {
	// From and To override the window bounds (YYYY-MM-DD). The checkpoint only
	// advances when the effective To is today.
	From string
	To   string
	// DryRun fetches and normalizes without writing anything.
	DryRun bool
	// Limit caps the number of rows written. A limited run never advances the
	// checkpoint.
	Limit int
}

// Report summarizes a run.
type Report struct {
	RunID              string        `json:"runId"`
	FromDate           string        `json:"fromDate"`
	ToDate             string        `json:"toDate"`
	Fetched            int           `json:"fetched"`
	Upserted           int           `json:"upserted"`
	Failed             int           `json:"failed"`
	AuditFailures      int           `json:"auditFailures"`
	Provisional        int           `json:"provisional"`
	DryRun             bool          `json:"dryRun"`
	CheckpointAdvanced bool          `json:"checkpointAdvanced"`
	FailureDump        string        `json:"failureDump,omitempty"`
	Duration           time.Duration `json:"-"`
	DurationSeconds    float64       `json:"durationSeconds"`
}
