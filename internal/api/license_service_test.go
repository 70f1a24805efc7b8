package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"licensesync/internal/checkpoint"
	"licensesync/internal/license"
	"licensesync/internal/services"
)

type mockLicenseReader struct {
	customers  []string
	products   map[string][]string
	rows       []license.StoredRecord
	total      int
	lastFilter license.Filter
	summary    license.Summary
	runs       []license.RunRecord
	err        error
}

func (m *mockLicenseReader) Customers(context.Context) ([]string, error) {
	return m.customers, m.err
}

func (m *mockLicenseReader) Products(_ context.Context, customer string) ([]string, error) {
	return m.products[customer], m.err
}

func (m *mockLicenseReader) QueryLicenses(_ context.Context, f license.Filter) ([]license.StoredRecord, int, error) {
	m.lastFilter = f
	return m.rows, m.total, m.err
}

func (m *mockLicenseReader) ExportLicenses(_ context.Context, f license.Filter) ([]license.StoredRecord, error) {
	m.lastFilter = f
	return m.rows, m.err
}

func (m *mockLicenseReader) Summary(context.Context) (license.Summary, error) {
	return m.summary, m.err
}

func (m *mockLicenseReader) RecentRuns(context.Context, int) ([]license.RunRecord, error) {
	return m.runs, m.err
}

func TestLicenseServiceCustomers(t *testing.T) {
	svc := NewLicenseService(&mockLicenseReader{customers: []string{"Acme", "Globex"}}, nil, nil)
	got, err := svc.Customers(context.Background())
	if err != nil {
		t.Fatalf("Customers returned error: %v", err)
	}
	if len(got) != 2 || got[1].CustomerName != "Globex" {
		t.Fatalf("unexpected customers: %+v", got)
	}
}

func TestLicenseServiceProductsRequiresCustomer(t *testing.T) {
	svc := NewLicenseService(&mockLicenseReader{}, nil, nil)
	_, err := svc.Products(context.Background(), "  ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.HTTPStatus(err) != 400 {
		t.Fatalf("expected status 400, got %d", services.HTTPStatus(err))
	}
}

func TestLicenseServiceProducts(t *testing.T) {
	svc := NewLicenseService(&mockLicenseReader{products: map[string][]string{"Acme": {"Compliance 101"}}}, nil, nil)
	got, err := svc.Products(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Products returned error: %v", err)
	}
	if len(got) != 1 || got[0].ProductTitle != "Compliance 101" {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestLicenseServiceDetailsDefaultsPage(t *testing.T) {
	reader := &mockLicenseReader{total: 250}
	svc := NewLicenseService(reader, nil, nil)
	resp, err := svc.Details(context.Background(), LicenseDetailsRequest{CustomerName: " Acme ", DateFrom: "2024-06-01"})
	if err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	if !resp.OK || resp.Total != 250 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.License == nil {
		t.Fatal("expected empty slice, not nil")
	}
	if reader.lastFilter.Page != 1 || reader.lastFilter.CustomerName != "Acme" {
		t.Fatalf("unexpected filter: %+v", reader.lastFilter)
	}
}

func TestLicenseServiceExportIgnoresPage(t *testing.T) {
	reader := &mockLicenseReader{}
	svc := NewLicenseService(reader, nil, nil)
	if _, err := svc.Export(context.Background(), LicenseDetailsRequest{Page: 4}); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if reader.lastFilter.Page != 0 {
		t.Fatalf("expected export without paging, got page %d", reader.lastFilter.Page)
	}
}

func TestLicenseServiceStatus(t *testing.T) {
	kv := checkpoint.NewMemoryKV()
	cp := checkpoint.New(kv)
	if err := cp.SetLast(context.Background(), "2024-06-15"); err != nil {
		t.Fatalf("SetLast: %v", err)
	}
	started := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	reader := &mockLicenseReader{
		summary: license.Summary{Licenses: 12, Provisional: 2, Customers: 3},
		runs: []license.RunRecord{{
			RunID:     "abc",
			StartedAt: started,
			Status:    license.RunSucceeded,
		}},
	}
	svc := NewLicenseService(reader, cp, func() bool { return true })

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if !status.HasCheckpoint || status.Checkpoint != "2024-06-15" {
		t.Fatalf("unexpected checkpoint: %+v", status)
	}
	if !status.Running || status.Counts.Licenses != 12 || status.Counts.Provisional != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(status.RecentRuns) != 1 || status.RecentRuns[0].StartedAt != "2024-06-15T10:00:00.000Z" {
		t.Fatalf("unexpected runs: %+v", status.RecentRuns)
	}
	if status.RecentRuns[0].FinishedAt != "" {
		t.Fatalf("expected zero finish time omitted, got %q", status.RecentRuns[0].FinishedAt)
	}
}

func TestLicenseServiceStatusPropagatesErrors(t *testing.T) {
	sentinel := errors.New("boom")
	svc := NewLicenseService(&mockLicenseReader{err: sentinel}, nil, nil)
	if _, err := svc.Status(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
}
