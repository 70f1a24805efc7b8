package api

import "licensesync/internal/license"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// IngestReport describes a finished ingestion run.
type IngestReport struct {
	RunID              string  `json:"runId"`
	FromDate           string  `json:"fromDate"`
	ToDate             string  `json:"toDate"`
	Fetched            int     `json:"fetched"`
	Upserted           int     `json:"upserted"`
	Failed             int     `json:"failed"`
	AuditFailures      int     `json:"auditFailures"`
	Provisional        int     `json:"provisional"`
	DryRun             bool    `json:"dryRun"`
	CheckpointAdvanced bool    `json:"checkpointAdvanced"`
	DurationSeconds    float64 `json:"durationSeconds"`
	FailureDump        string  `json:"failureDump,omitempty"`
}

// IngestResponse wraps a successful ingestion trigger.
type IngestResponse struct {
	OK     bool         `json:"ok"`
	Report IngestReport `json:"report"`
}

// ErrorResponse is the failure envelope for every endpoint.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Run is one row of ingestion history.
type Run struct {
	RunID         string `json:"runId"`
	StartedAt     string `json:"startedAt"`
	FinishedAt    string `json:"finishedAt,omitempty"`
	FromDate      string `json:"fromDate"`
	ToDate        string `json:"toDate"`
	Fetched       int    `json:"fetched"`
	Upserted      int    `json:"upserted"`
	Failed        int    `json:"failed"`
	AuditFailures int    `json:"auditFailures"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// Counts mirrors the table row counts.
type Counts struct {
	Licenses    int `json:"licenses"`
	Provisional int `json:"provisional"`
	AuditRows   int `json:"auditRows"`
	Customers   int `json:"customers"`
}

// Status aggregates pipeline state for API consumers.
type Status struct {
	Checkpoint    string `json:"checkpoint,omitempty"`
	HasCheckpoint bool   `json:"hasCheckpoint"`
	Running       bool   `json:"running"`
	Counts        Counts `json:"counts"`
	RecentRuns    []Run  `json:"recentRuns"`
}

// StatusResponse wraps Status.
type StatusResponse struct {
	OK bool `json:"ok"`
	Status
}

// Customer is one distinct customer name.
type Customer struct {
	CustomerName string `json:"customer_name"`
}

// CustomersResponse lists distinct customers.
type CustomersResponse struct {
	OK        bool       `json:"ok"`
	Customers []Customer `json:"customers"`
}

// Product is one distinct product title.
type Product struct {
	ProductTitle string `json:"product_title"`
}

// ProductsResponse lists distinct products of one customer.
type ProductsResponse struct {
	OK       bool      `json:"ok"`
	Products []Product `json:"products"`
}

// LicenseDetailsRequest is the body of the license-details endpoints. Page is
// ignored by the export endpoint.
type LicenseDetailsRequest struct {
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
	Page         int    `json:"page"`
	CustomerName string `json:"customer_name"`
	ProductTitle string `json:"product_title"`
}

// LicenseDetailsResponse is one page of license rows. Total is the count of
// all rows matching the filter.
type LicenseDetailsResponse struct {
	OK      bool                   `json:"ok"`
	License []license.StoredRecord `json:"license"`
	Total   int                    `json:"total"`
}

// LicenseExportResponse carries every matching row.
type LicenseExportResponse struct {
	OK      bool                   `json:"ok"`
	License []license.StoredRecord `json:"license"`
}
