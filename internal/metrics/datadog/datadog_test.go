package datadog

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"suumoscrape/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads instead of doing real HTTP.
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
}

func (f *fakeSubmitter) SubmitMetrics(_ context.Context, body datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func newTestBackend(t *testing.T, sub *fakeSubmitter) *Backend {
	t.Helper()

	b, err := NewBackend(context.Background(), Options{
		JobName: "testjob",
		// A very long interval so only explicit Flush/Close submit.
		FlushEvery: time.Hour,
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		newTicker:  time.NewTicker,
		submitter:  sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

// TestFlush_SubmitsBufferedSeries verifies counters and histograms buffer
// until Flush, then submit as scrape.* series and reset.
func TestFlush_SubmitsBufferedSeries(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("scrape_rows_total", 1, metrics.Labels{"kind": "extracted"})
	b.IncCounter("scrape_rows_total", 2, metrics.Labels{"kind": "null"})
	b.IncCounter("scrape_http_requests_total", 3, metrics.Labels{"status": "200"})
	b.IncCounter("scrape_http_errors_total", 1, metrics.Labels{"status": "503"})
	b.ObserveHistogram("scrape_http_request_duration_seconds", 0.25, metrics.Labels{"status": "200"})
	b.ObserveHistogram("scrape_http_download_bytes", 1024, metrics.Labels{"status": "200"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("expected 1 payload, got %d", sub.count())
	}

	byName := map[string]datadogV2.MetricSeries{}
	for _, s := range sub.payloads[0].Series {
		byName[s.Metric] = s
	}

	rows, ok := byName["scrape.rows.total"]
	if !ok {
		t.Fatalf("missing scrape.rows.total in %v", keys(byName))
	}
	if !hasTag(rows.Tags, "job:testjob") {
		t.Fatalf("expected job tag, got %v", rows.Tags)
	}
	for _, want := range []string{
		"scrape.http.requests.total",
		"scrape.http.errors.total",
		"scrape.http.request_duration_seconds.p50",
		"scrape.http.request_duration_seconds.max",
		"scrape.http.download_bytes.samples",
	} {
		if _, ok := byName[want]; !ok {
			t.Fatalf("missing %s in %v", want, keys(byName))
		}
	}

	// Buffers reset: a second Flush has nothing to submit.
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("expected empty flush to submit nothing, got %d payloads", sub.count())
	}
}

// TestIgnoredUpdates verifies unknown metric names and non-positive deltas
// buffer nothing.
func TestIgnoredUpdates(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("unknown_metric", 1, nil)
	b.IncCounter("scrape_rows_total", 0, metrics.Labels{"kind": "extracted"})
	b.IncCounter("scrape_rows_total", 1, metrics.Labels{})
	b.ObserveHistogram("unknown_histogram", 1, nil)
	b.ObserveHistogram("scrape_http_download_bytes", -1, metrics.Labels{"status": "200"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sub.count() != 0 {
		t.Fatalf("expected nothing submitted, got %d payloads", sub.count())
	}
}

// TestPercentileNearestRank pins the rank selection at the edges.
func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	s := []float64{1, 2, 3, 4, 5}
	if got := percentileNearestRank(s, 0); got != 1 {
		t.Fatalf("p0: got %v", got)
	}
	if got := percentileNearestRank(s, 1); got != 5 {
		t.Fatalf("p100: got %v", got)
	}
	if got := percentileNearestRank(s, 0.5); got != 3 {
		t.Fatalf("p50: got %v", got)
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Fatalf("empty: got %v", got)
	}
}

// TestParseTagsCSV covers trimming and empty entries.
func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	got := ParseTagsCSV(" env:prod , ,service:scrape,")
	if len(got) != 2 || got[0] != "env:prod" || got[1] != "service:scrape" {
		t.Fatalf("unexpected tags: %v", got)
	}
	if ParseTagsCSV("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func keys(m map[string]datadogV2.MetricSeries) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
