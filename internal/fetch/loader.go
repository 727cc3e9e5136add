// Package fetch loads pages over HTTP with a browser-like identity, a fixed
// per-request timeout, and strict 2xx success semantics. Every attempt is
// single-shot; retrying is the caller's decision (and this crawler never
// retries).
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"suumoscrape/internal/metrics"
)

// DefaultUserAgent identifies the crawler as an ordinary desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// logRecord is emitted as JSONL for each fetch attempt when JSON logging is
// enabled. Additive changes are safe; renames/removals break downstream log
// consumers.
type logRecord struct {
	Timestamp  string `json:"ts"`
	URL        string `json:"url"`
	StatusCode int    `json:"http_code"`
	DurationMs int64  `json:"duration_ms"`
	SizeBytes  int64  `json:"size_bytes"`
	Error      string `json:"error,omitempty"`
}

// Options configures a Loader.
type Options struct {
	// Timeout bounds each request. If <= 0, defaults to 20 seconds.
	Timeout time.Duration

	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string

	// JobName tags metrics recorded for each fetch.
	JobName string

	// LogJSON, when non-nil, receives one JSONL record per fetch attempt.
	LogJSON io.Writer
}

// Loader fetches pages with a consistent timeout and identity policy.
type Loader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	jobName   string
	logJSON   io.Writer

	// now is a clock seam for tests.
	now func() time.Time
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
func NewLoader(client *http.Client, opts Options) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Loader{
		client:    client,
		timeout:   timeout,
		userAgent: ua,
		jobName:   opts.JobName,
		logJSON:   opts.LogJSON,
		now:       time.Now,
	}
}

// Fetch GETs rawURL and returns the body as a string.
//
// Success is strictly an HTTP 2xx status. On other statuses the error
// includes the status code and up to 4KB of the response body; the fetch is
// never retried.
func (l *Loader) Fetch(ctx context.Context, rawURL string) (string, error) {
	start := l.now()

	body, status, err := l.doFetch(ctx, rawURL)
	dur := l.now().Sub(start)

	metrics.RecordHTTP(l.jobName, status, err, dur, int64(len(body)))
	l.logAttempt(rawURL, status, dur, int64(len(body)), err)

	return body, err
}

func (l *Loader) doFetch(ctx context.Context, rawURL string) (body string, status int, err error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", resp.StatusCode, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return string(b), resp.StatusCode, nil
}

func (l *Loader) logAttempt(rawURL string, status int, dur time.Duration, size int64, err error) {
	if l.logJSON == nil {
		return
	}
	rec := logRecord{
		Timestamp:  l.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		URL:        rawURL,
		StatusCode: status,
		DurationMs: dur.Milliseconds(),
		SizeBytes:  size,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	_ = json.NewEncoder(l.logJSON).Encode(rec)
}
