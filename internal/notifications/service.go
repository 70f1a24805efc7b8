package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"licensesync/internal/config"
)

const userAgent = "licensesync/0.1"

// Service defines the notification surface exposed to the ingestion pipeline.
type Service interface {
	NotifyIngestCompleted(ctx context.Context, summary IngestSummary) error
	NotifyIngestFailed(ctx context.Context, from, to string, err error) error
	TestNotification(ctx context.Context) error
}

// IngestSummary is the subset of a run report worth pushing to a phone.
type IngestSummary struct {
	FromDate string
	ToDate   string
	Fetched  int
	Upserted int
	Failed   int
	Duration time.Duration
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
		onFailure: cfg.Notifications.OnFailure,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
	onFailure bool
}

func (n *ntfyService) NotifyIngestCompleted(ctx context.Context, s IngestSummary) error {
	if !n.onSuccess {
		return nil
	}
	duration := s.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "licensesync - Ingest Complete"
	message := fmt.Sprintf("%s → %s: %d fetched, %d upserted in %s", s.FromDate, s.ToDate, s.Fetched, s.Upserted, duration)
	if s.Failed > 0 {
		title = "licensesync - Ingest Complete (with errors)"
		message = fmt.Sprintf("%s, %d rows failed", message, s.Failed)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"licensesync", "ingest", "completed"},
	})
}

func (n *ntfyService) NotifyIngestFailed(ctx context.Context, from, to string, err error) error {
	if !n.onFailure {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Ingest %s → %s failed: ", from, to)
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "licensesync - Ingest Failed",
		message:  builder.String(),
		tags:     []string{"licensesync", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "licensesync - Test",
		message:  "Notification system test",
		tags:     []string{"licensesync", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyIngestCompleted(context.Context, IngestSummary) error      { return nil }
func (noopService) NotifyIngestFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
