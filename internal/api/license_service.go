package api

import (
	"context"
	"strings"

	"licensesync/internal/checkpoint"
	"licensesync/internal/license"
	"licensesync/internal/services"
)

// statusRunLimit is how many history rows Status returns.
const statusRunLimit = 10

// LicenseReader abstracts the store queries needed by the API.
type LicenseReader interface {
	Customers(ctx context.Context) ([]string, error)
	Products(ctx context.Context, customer string) ([]string, error)
	QueryLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, int, error)
	ExportLicenses(ctx context.Context, filter license.Filter) ([]license.StoredRecord, error)
	Summary(ctx context.Context) (license.Summary, error)
	RecentRuns(ctx context.Context, limit int) ([]license.RunRecord, error)
}

// LicenseService exposes read-only reporting operations returning API DTOs.
type LicenseService struct {
	store      LicenseReader
	checkpoint *checkpoint.Store
	running    func() bool
}

// NewLicenseService constructs a LicenseService. cp and running may be nil.
func NewLicenseService(store LicenseReader, cp *checkpoint.Store, running func() bool) *LicenseService {
	if store == nil {
		return nil
	}
	return &LicenseService{store: store, checkpoint: cp, running: running}
}

// Customers lists distinct customer names in ascending order.
func (s *LicenseService) Customers(ctx context.Context) ([]Customer, error) {
	if s == nil {
		return []Customer{}, nil
	}
	names, err := s.store.Customers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Customer, 0, len(names))
	for _, name := range names {
		out = append(out, Customer{CustomerName: name})
	}
	return out, nil
}

// Products lists distinct product titles for one customer.
func (s *LicenseService) Products(ctx context.Context, customer string) ([]Product, error) {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "products", "customer_name is required", nil)
	}
	if s == nil {
		return []Product{}, nil
	}
	titles, err := s.store.Products(ctx, customer)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(titles))
	for _, title := range titles {
		out = append(out, Product{ProductTitle: title})
	}
	return out, nil
}

// Details returns one page of matching rows and the total match count.
func (s *LicenseService) Details(ctx context.Context, req LicenseDetailsRequest) (LicenseDetailsResponse, error) {
	if s == nil {
		return LicenseDetailsResponse{OK: true, License: []license.StoredRecord{}}, nil
	}
	rows, total, err := s.store.QueryLicenses(ctx, req.ToFilter())
	if err != nil {
		return LicenseDetailsResponse{}, err
	}
	if rows == nil {
		rows = []license.StoredRecord{}
	}
	return LicenseDetailsResponse{OK: true, License: rows, Total: total}, nil
}

// Export returns every matching row.
func (s *LicenseService) Export(ctx context.Context, req LicenseDetailsRequest) ([]license.StoredRecord, error) {
	if s == nil {
		return []license.StoredRecord{}, nil
	}
	filter := req.ToFilter()
	filter.Page = 0
	rows, err := s.store.ExportLicenses(ctx, filter)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []license.StoredRecord{}
	}
	return rows, nil
}

// Status returns the checkpoint, table counts and recent runs.
func (s *LicenseService) Status(ctx context.Context) (Status, error) {
	status := Status{RecentRuns: []Run{}}
	if s == nil {
		return status, nil
	}
	if s.checkpoint != nil {
		last, ok, err := s.checkpoint.GetLast(ctx)
		if err != nil {
			return status, err
		}
		status.Checkpoint, status.HasCheckpoint = last, ok
	}
	if s.running != nil {
		status.Running = s.running()
	}
	summary, err := s.store.Summary(ctx)
	if err != nil {
		return status, err
	}
	status.Counts = FromSummary(summary)
	runs, err := s.store.RecentRuns(ctx, statusRunLimit)
	if err != nil {
		return status, err
	}
	status.RecentRuns = FromRunRecords(runs)
	return status, nil
}
