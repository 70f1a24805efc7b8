// Package upstream fetches license-detail pages from the report API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"licensesync/internal/config"
	"licensesync/internal/httpx"
	"licensesync/internal/license"
	"licensesync/internal/logging"
	"licensesync/internal/services"
)

const reportAction = "API_REPORT_LICENSE_DETAILS"

// PageRequest identifies a single page of the license-details report.
type PageRequest struct {
	Page     int
	DateFrom string
	DateTo   string
}

// PageTransport retrieves one page of raw rows. An empty slice with a nil
// error means there are no more pages.
type PageTransport interface {
	FetchPage(ctx context.Context, req PageRequest) ([]license.RawRecord, error)
}

// Credentials authenticate report requests.
type Credentials struct {
	Token    string
	Password string
	ID       string
}

// HTTPTransport posts form-encoded report requests to the upstream API.
type HTTPTransport struct {
	baseURL string
	creds   Credentials
	client  *http.Client
	limiter *rate.Limiter
	retry   httpx.RetryPolicy
	logger  *slog.Logger
}

// NewHTTPTransport builds the production transport from the upstream section
// of the configuration.
func NewHTTPTransport(cfg *config.Config, logger *slog.Logger) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: cfg.Upstream.BaseURL,
		creds: Credentials{
			Token:    cfg.Upstream.Token,
			Password: cfg.Upstream.Password,
			ID:       cfg.Upstream.ID,
		},
		client: &http.Client{Timeout: cfg.UpstreamTimeout()},
		retry:  httpx.NoRetry(),
		logger: logging.NewComponentLogger(logger, "upstream"),
	}
	if cfg.Upstream.RetryAttempts > 1 {
		t.retry = httpx.BackoffPolicy(cfg.Upstream.RetryAttempts)
	}
	if rps := cfg.Upstream.RequestsPerSecond; rps > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return t
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (t *HTTPTransport) WithHTTPClient(client *http.Client) *HTTPTransport {
	if client != nil {
		t.client = client
	}
	return t
}

// FetchPage implements PageTransport.
func (t *HTTPTransport) FetchPage(ctx context.Context, req PageRequest) ([]license.RawRecord, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	form := t.form(req)
	build := func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		httpReq.Header.Set("Accept", "application/json")
		return httpReq, nil
	}

	start := time.Now()
	_, body, err := httpx.Do(ctx, t.client, build, t.retry)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "upstream", "fetch page",
			fmt.Sprintf("page %d", req.Page), err)
	}

	rows, found, err := decodeLicenses(body)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedResponse, "upstream", "decode page",
			fmt.Sprintf("page %d: %s", req.Page, httpx.Snippet(body, 200)), err)
	}
	if !found && req.Page == 1 {
		t.logger.Warn("license array missing from first page",
			logging.String("body", httpx.Snippet(body, 200)))
	}
	t.logger.Debug("page fetched",
		logging.Int("page", req.Page),
		logging.Int("rows", len(rows)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return rows, nil
}

// Ping checks that the report endpoint answers HTTP at all. Any status code
// counts as reachable.
func (t *HTTPTransport) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "upstream", "ping", t.baseURL, err)
	}
	resp.Body.Close()
	return nil
}

func (t *HTTPTransport) form(req PageRequest) string {
	values := url.Values{}
	values.Set("action", reportAction)
	values.Set("output", "JSON")
	values.Set("token", t.creds.Token)
	values.Set("password", t.creds.Password)
	values.Set("id", t.creds.ID)
	values.Set("page", strconv.Itoa(req.Page))
	if req.DateFrom != "" {
		values.Set("date_from", req.DateFrom)
	}
	if req.DateTo != "" {
		values.Set("date_to", req.DateTo)
	}
	return values.Encode()
}

// decodeLicenses extracts message.licenses.license. A body that is valid JSON
// but lacks the array yields no rows and found=false; only undecodable JSON is
// an error. Array entries that are not objects are skipped.
func decodeLicenses(body []byte) ([]license.RawRecord, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var envelope any
	if err := dec.Decode(&envelope); err != nil {
		return nil, false, err
	}

	node := envelope
	for _, key := range []string{"message", "licenses", "license"} {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		node = obj[key]
	}
	items, ok := node.([]any)
	if !ok {
		return nil, false, nil
	}

	rows := make([]license.RawRecord, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			rows = append(rows, license.RawRecord(obj))
		}
	}
	return rows, true, nil
}
