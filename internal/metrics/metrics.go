// Package metrics is a tiny facade over an optional metrics backend.
//
// The crawler depends only on this package; concrete backends (Datadog) live
// in subpackages. When no backend is set, every call is a no-op, so metrics
// never become a hard dependency of a run.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Labels are free-form metric dimensions.
type Labels map[string]string

// Backend receives raw metric updates.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer updates.
type Flusher interface {
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend
)

// SetBackend installs the process-wide backend. Passing nil disables metrics.
func SetBackend(b Backend) {
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the backend if it buffers, and is a no-op otherwise.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// IncCounter increments a counter if a backend is installed.
func IncCounter(name string, delta float64, labels Labels) {
	if b := current(); b != nil {
		b.IncCounter(name, delta, labels)
	}
}

// ObserveHistogram records a sample if a backend is installed.
func ObserveHistogram(name string, value float64, labels Labels) {
	if b := current(); b != nil {
		b.ObserveHistogram(name, value, labels)
	}
}

// RecordHTTP records one fetch attempt: request count, error count when the
// attempt failed, duration, and downloaded size.
//
// status 0 means the request never produced a response (network error).
func RecordHTTP(job string, status int, err error, dur time.Duration, sizeBytes int64) {
	labels := Labels{"job": job, "status": statusLabel(status)}

	IncCounter("scrape_http_requests_total", 1, labels)
	if err != nil {
		IncCounter("scrape_http_errors_total", 1, labels)
	}
	if dur >= 0 {
		ObserveHistogram("scrape_http_request_duration_seconds", dur.Seconds(), labels)
	}
	if sizeBytes >= 0 {
		ObserveHistogram("scrape_http_download_bytes", float64(sizeBytes), labels)
	}
}

// RecordRow counts one output row. kind is "extracted" for a populated row
// and "null" for a placeholder row.
func RecordRow(job, kind string) {
	IncCounter("scrape_rows_total", 1, Labels{"job": job, "kind": kind})
}

func statusLabel(status int) string {
	if status == 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}
