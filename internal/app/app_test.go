package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"licensesync/internal/app"
	"licensesync/internal/testsupport"
)

func TestRuntimeIngestsIntoSQLite(t *testing.T) {
	pages := [][]map[string]any{}
	for _, raw := range testsupport.RawLicenses(3) {
		pages = append(pages, []map[string]any{raw})
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		page, _ := strconv.Atoi(r.PostForm.Get("page"))
		rows := []map[string]any{}
		if page >= 1 && page <= len(pages) {
			rows = pages[page-1]
		}
		body := map[string]any{"message": map[string]any{"licenses": map[string]any{"license": rows}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithUpstreamURL(srv.URL))
	rt, err := app.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("app.Open: %v", err)
	}
	defer rt.Close()

	report, err := rt.Orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Fetched != 3 || report.Upserted != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	summary, err := rt.Store.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Licenses != 3 || summary.AuditRows != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	last, ok, err := rt.Checkpoint.GetLast(context.Background())
	if err != nil || !ok || last != report.ToDate {
		t.Fatalf("expected checkpoint %s, got %q ok=%v err=%v", report.ToDate, last, ok, err)
	}

	status, err := rt.Licenses.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.RecentRuns) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(status.RecentRuns))
	}
}
