package api

import (
	"strings"
	"time"

	"licensesync/internal/ingest"
	"licensesync/internal/license"
)

// FromReport converts an ingestion report.
func FromReport(r ingest.Report) IngestReport {
	return IngestReport{
		RunID:              r.RunID,
		FromDate:           r.FromDate,
		ToDate:             r.ToDate,
		Fetched:            r.Fetched,
		Upserted:           r.Upserted,
		Failed:             r.Failed,
		AuditFailures:      r.AuditFailures,
		Provisional:        r.Provisional,
		DryRun:             r.DryRun,
		CheckpointAdvanced: r.CheckpointAdvanced,
		DurationSeconds:    r.Duration.Seconds(),
		FailureDump:        r.FailureDump,
	}
}

// FromRunRecord converts one history row.
func FromRunRecord(run license.RunRecord) Run {
	return Run{
		RunID:         run.RunID,
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		FromDate:      run.FromDate,
		ToDate:        run.ToDate,
		Fetched:       run.Fetched,
		Upserted:      run.Upserted,
		Failed:        run.Failed,
		AuditFailures: run.AuditFailures,
		Status:        run.Status,
		Error:         run.Error,
	}
}

// FromRunRecords converts history rows, preserving order.
func FromRunRecords(runs []license.RunRecord) []Run {
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromRunRecord(run))
	}
	return out
}

// FromSummary converts table counts.
func FromSummary(s license.Summary) Counts {
	return Counts{
		Licenses:    s.Licenses,
		Provisional: s.Provisional,
		AuditRows:   s.AuditRows,
		Customers:   s.Customers,
	}
}

// ToFilter trims the request into a store filter.
func (r LicenseDetailsRequest) ToFilter() license.Filter {
	page := r.Page
	if page <= 0 {
		page = 1
	}
	return license.Filter{
		DateFrom:     strings.TrimSpace(r.DateFrom),
		DateTo:       strings.TrimSpace(r.DateTo),
		CustomerName: strings.TrimSpace(r.CustomerName),
		ProductTitle: strings.TrimSpace(r.ProductTitle),
		Page:         page,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
