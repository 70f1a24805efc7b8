package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"licensesync/internal/api"
	"licensesync/internal/services"
	"licensesync/internal/testsupport"
)

func TestIngestThenQuery(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.RawLicenses(3))
	today := time.Now().UTC().Format("2006-01-02")

	out, _, err := runCLI(t, []string{"ingest"}, env.configPath)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	requireContains(t, out, "Upserted")
	requireContains(t, out, "advanced to "+today)

	out, _, err = runCLI(t, []string{"checkpoint", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("checkpoint show: %v", err)
	}
	if strings.TrimSpace(out) != today {
		t.Fatalf("expected checkpoint %s, got %q", today, out)
	}

	out, _, err = runCLI(t, []string{"customers"}, env.configPath)
	if err != nil {
		t.Fatalf("customers: %v", err)
	}
	if strings.TrimSpace(out) != "Acme" {
		t.Fatalf("unexpected customers output %q", out)
	}

	out, _, err = runCLI(t, []string{"products", "--customer", "Acme", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	var products api.ProductsResponse
	if err := json.Unmarshal([]byte(out), &products); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(products.Products) != 1 || products.Products[0].ProductTitle != "Compliance 101" {
		t.Fatalf("unexpected products: %+v", products)
	}

	out, _, err = runCLI(t, []string{"licenses", "--customer", "Acme"}, env.configPath)
	if err != nil {
		t.Fatalf("licenses: %v", err)
	}
	requireContains(t, out, "user001@example.com")
	requireContains(t, out, "Page 1 of 1 (3 rows)")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status api.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Counts.Licenses != 3 || !status.HasCheckpoint || len(status.RecentRuns) != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestIngestDryRunJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.RawLicenses(2))

	out, _, err := runCLI(t, []string{"ingest", "--dry-run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	var resp api.IngestResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !resp.OK || !resp.Report.DryRun || resp.Report.Fetched != 2 || resp.Report.Upserted != 0 {
		t.Fatalf("unexpected report: %+v", resp)
	}
	if resp.Report.CheckpointAdvanced {
		t.Fatal("dry run must not advance the checkpoint")
	}

	out, _, err = runCLI(t, []string{"checkpoint", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("checkpoint show: %v", err)
	}
	requireContains(t, out, "No checkpoint")
}

func TestIngestRejectsInvertedWindow(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	_, _, err := runCLI(t, []string{"ingest", "--from", "2024-05-01", "--to", "2024-04-01"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckpointSet(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	if _, _, err := runCLI(t, []string{"checkpoint", "set", "2024-03-01"}, env.configPath); err != nil {
		t.Fatalf("checkpoint set: %v", err)
	}
	out, _, err := runCLI(t, []string{"checkpoint", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("checkpoint show: %v", err)
	}
	if strings.TrimSpace(out) != "2024-03-01" {
		t.Fatalf("unexpected checkpoint %q", out)
	}

	_, _, err = runCLI(t, []string{"checkpoint", "set", "03/01/2024"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProductsRequiresCustomer(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	_, _, err := runCLI(t, []string{"products"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportWritesCSV(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.RawLicenses(4))
	if _, _, err := runCLI(t, []string{"ingest"}, env.configPath); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	target := filepath.Join(t.TempDir(), "out.csv")
	out, _, err := runCLI(t, []string{"export", "--out", target, "--customer", "Acme"}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Wrote 4 rows")

	f, err := os.Open(target)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d", len(records))
	}
}

func TestExportUploadRequiresSFTPConfig(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	_, _, err := runCLI(t, []string{"export", "--upload", "--out", filepath.Join(t.TempDir(), "x.csv")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "sftp_host") {
		t.Fatalf("expected sftp configuration error, got %v", err)
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	out, _, err := runCLI(t, []string{"doctor", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	var results []struct {
		Name   string `json:"name"`
		Passed bool   `json:"passed"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"Data directory", "Upstream API", "Store (sqlite)"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected check %q in %v", want, names)
		}
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestIngestFailureWritesDumpUnderDataDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithUpstreamURL(srv.URL))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, stderr, err := runCLI(t, []string{"ingest"}, configPath)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	requireContains(t, stderr, "Failure details written to")

	dumps, globErr := filepath.Glob(filepath.Join(cfg.Paths.DataDir, "dumps", "ingest-error-*.json"))
	if globErr != nil || len(dumps) != 1 {
		t.Fatalf("expected one run failure dump, got %v (err=%v)", dumps, globErr)
	}

	out, _, err := runCLI(t, []string{"checkpoint", "show"}, configPath)
	if err != nil {
		t.Fatalf("checkpoint show: %v", err)
	}
	requireContains(t, out, "No checkpoint")
}
