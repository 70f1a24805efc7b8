package daemon

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"licensesync/internal/api"
	"licensesync/internal/checkpoint"
	"licensesync/internal/ingest"
	"licensesync/internal/license"
	"licensesync/internal/services"
	"licensesync/internal/testsupport"
)

type ingesterStub struct {
	report  ingest.Report
	err     error
	lastOpt ingest.RunOptions
	calls   int
}

func (s *ingesterStub) RunWithOptions(_ context.Context, opts ingest.RunOptions) (ingest.Report, error) {
	s.calls++
	s.lastOpt = opts
	return s.report, s.err
}

func (s *ingesterStub) Running() bool { return false }

func newTestServer(t *testing.T, ing Ingester, token string, rows int) http.Handler {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	for i, raw := range testsupport.RawLicenses(rows) {
		testsupport.MustUpsert(t, st, license.Normalize(raw, "2024-01-01", "2024-06-15", i/100+1))
	}
	svc := api.NewLicenseService(st, checkpoint.New(st), ing.Running)
	srv := newAPIServer("127.0.0.1:0", token, ing, svc, nil)
	return srv.handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleIngestReturnsReport(t *testing.T) {
	stub := &ingesterStub{report: ingest.Report{RunID: "r1", Fetched: 3, Upserted: 3, FromDate: "2024-06-01", ToDate: "2024-06-15"}}
	h := newTestServer(t, stub, "", 0)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := do(t, h, method, "/api/ingest/licenses", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", method, w.Code, w.Body.String())
		}
		var resp api.IngestResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.OK || resp.Report.Upserted != 3 || resp.Report.RunID != "r1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 runs, got %d", stub.calls)
	}
}

func TestHandleIngestPassesWindowOverride(t *testing.T) {
	stub := &ingesterStub{}
	h := newTestServer(t, stub, "", 0)
	w := do(t, h, http.MethodPost, "/api/ingest/licenses?from=2024-01-01&to=2024-01-31&dry_run=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.lastOpt.From != "2024-01-01" || stub.lastOpt.To != "2024-01-31" || !stub.lastOpt.DryRun {
		t.Fatalf("unexpected options: %+v", stub.lastOpt)
	}
}

func TestHandleIngestFailureStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"fetch failure", services.Wrap(services.ErrTransport, "upstream", "fetch", "", errors.New("reset")), http.StatusInternalServerError},
		{"run in progress", services.Wrap(services.ErrRunInProgress, "ingest", "lock", "", nil), http.StatusConflict},
		{"bad window", services.Wrap(services.ErrValidation, "ingest", "window", "", nil), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, &ingesterStub{err: tc.err}, "", 0)
			w := do(t, h, http.MethodGet, "/api/ingest/licenses", "")
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			var resp api.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.OK || resp.Error == "" {
				t.Fatalf("expected failure envelope, got %+v", resp)
			}
		})
	}
}

func TestHandleProductsRequiresCustomer(t *testing.T) {
	h := newTestServer(t, &ingesterStub{}, "", 1)
	w := do(t, h, http.MethodGet, "/api/products", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/products?customer_name=Acme", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.ProductsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].ProductTitle != "Compliance 101" {
		t.Fatalf("unexpected products: %+v", resp.Products)
	}
}

func TestHandleCustomers(t *testing.T) {
	h := newTestServer(t, &ingesterStub{}, "", 2)
	w := do(t, h, http.MethodGet, "/api/customers", "")
	var resp api.CustomersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || len(resp.Customers) != 1 || resp.Customers[0].CustomerName != "Acme" {
		t.Fatalf("unexpected customers: %+v", resp)
	}
}

func TestHandleLicenseDetailsPaginates(t *testing.T) {
	h := newTestServer(t, &ingesterStub{}, "", 130)

	w := do(t, h, http.MethodPost, "/api/license-details", `{"customer_name":"Acme","page":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.LicenseDetailsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 130 || len(resp.License) != 30 {
		t.Fatalf("expected 30 of 130 rows, got %d of %d", len(resp.License), resp.Total)
	}

	w = do(t, h, http.MethodPost, "/api/license-details", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode empty body response: %v", err)
	}
	if len(resp.License) != license.PageSize {
		t.Fatalf("expected first page of %d, got %d", license.PageSize, len(resp.License))
	}

	w = do(t, h, http.MethodPost, "/api/license-details", `{"page":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestHandleLicenseExport(t *testing.T) {
	h := newTestServer(t, &ingesterStub{}, "", 130)

	w := do(t, h, http.MethodPost, "/api/license-details/export", `{"product_title":"Compliance 101"}`)
	var resp api.LicenseExportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.License) != 130 {
		t.Fatalf("expected every row exported, got %d", len(resp.License))
	}

	w = do(t, h, http.MethodPost, "/api/license-details/export?format=csv", `{}`)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 131 {
		t.Fatalf("expected header plus 130 rows, got %d", len(records))
	}
}

func TestHandleStatus(t *testing.T) {
	h := newTestServer(t, &ingesterStub{}, "", 3)
	w := do(t, h, http.MethodGet, "/api/status", "")
	var resp api.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Counts.Licenses != 3 || resp.HasCheckpoint {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &ingesterStub{}, "", 0)
	if w := do(t, h, http.MethodGet, "/api/license-details", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	h := newTestServer(t, &ingesterStub{}, "secret", 0)

	if w := do(t, h, http.MethodGet, "/api/status", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}
