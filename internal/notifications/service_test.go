package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"licensesync/internal/config"
	"licensesync/internal/notifications"
)

type captured struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.calls++
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyIngestFailed(context.Background(), "a", "b", errors.New("x")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	summary := notifications.IngestSummary{
		FromDate: "2024-01-01",
		ToDate:   "2024-01-31",
		Fetched:  10,
		Upserted: 9,
		Failed:   1,
		Duration: 61400 * time.Millisecond,
	}
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "ingest completed with errors",
			send:          func(s notifications.Service) error { return s.NotifyIngestCompleted(context.Background(), summary) },
			expectTitle:   "licensesync - Ingest Complete (with errors)",
			expectMessage: "2024-01-01 → 2024-01-31: 10 fetched, 9 upserted in 1m1s, 1 rows failed",
			expectTags:    "licensesync,ingest,completed",
		},
		{
			name: "ingest failed",
			send: func(s notifications.Service) error {
				return s.NotifyIngestFailed(context.Background(), "2024-01-01", "2024-01-31", errors.New("transport error: page 3"))
			},
			expectTitle:    "licensesync - Ingest Failed",
			expectMessage:  "Ingest 2024-01-01 → 2024-01-31 failed: transport error: page 3",
			expectTags:     "licensesync,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "licensesync - Test",
			expectMessage:  "Notification system test",
			expectTags:     "licensesync,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCaptureServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.OnSuccess = true

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	server, got := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.OnSuccess = false
	cfg.Notifications.OnFailure = false

	svc := notifications.NewService(&cfg)
	_ = svc.NotifyIngestCompleted(context.Background(), notifications.IngestSummary{})
	_ = svc.NotifyIngestFailed(context.Background(), "", "", nil)
	if got.calls != 0 {
		t.Fatalf("expected suppressed notifications, got %d calls", got.calls)
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
