package license

import (
	"strings"
	"time"
)

// PageSize is the number of rows returned per page by reporting queries.
const PageSize = 100

// Filter narrows reporting queries. Dates bound tracking_first_access
// inclusively; customer and product are exact matches. Empty fields are
// ignored.
type Filter struct {
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
	CustomerName string `json:"customer_name"`
	ProductTitle string `json:"product_title"`
	Page         int    `json:"page"`
}

// Offset returns the row offset of the requested page. Pages start at 1.
func (f Filter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * PageSize
}

// Where renders the filter as SQL conditions. placeholder formats the n-th
// (1-based) bind parameter for the target dialect.
func (f Filter) Where(placeholder func(n int) string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		clauses = append(clauses, cond+" "+placeholder(len(args)))
	}
	if f.DateFrom != "" {
		add("tracking_first_access >=", f.DateFrom)
	}
	if f.DateTo != "" {
		add("tracking_first_access <=", f.DateTo)
	}
	if f.CustomerName != "" {
		add("customer_name =", f.CustomerName)
	}
	if f.ProductTitle != "" {
		add("product_title =", f.ProductTitle)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Run statuses recorded in the ingestion history.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunRecord is one row of ingestion history.
type RunRecord struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	FromDate      string    `json:"from_date"`
	ToDate        string    `json:"to_date"`
	Fetched       int       `json:"fetched"`
	Upserted      int       `json:"upserted"`
	Failed        int       `json:"failed"`
	AuditFailures int       `json:"audit_failures"`
	DryRun        bool      `json:"dry_run"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// Summary aggregates table counts for status output.
type Summary struct {
	Licenses    int `json:"licenses"`
	Provisional int `json:"provisional"`
	AuditRows   int `json:"audit_rows"`
	Customers   int `json:"customers"`
}
