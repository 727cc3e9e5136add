// Command suumo-scrape crawls SUUMO used-mansion listings, visits every
// detail page, and writes one tabular output (CSV by default, SQLite with
// -sink sqlite).
//
// Usage:
//
//	suumo-scrape
//	suumo-scrape -url "https://suumo.jp/jj/bukken/ichiran/..." -o results.csv
//	suumo-scrape -sink sqlite -o results.db
//
// The crawl is strictly sequential and single-shot: one GET per page, a
// politeness delay between requests, no retries. A failed detail page
// degrades to a row with only the URL populated; a failed first listing page
// aborts the run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"suumoscrape/internal/detail"
	"suumoscrape/internal/export"
	"suumoscrape/internal/fetch"
	"suumoscrape/internal/listing"
	"suumoscrape/internal/metrics"
	"suumoscrape/internal/metrics/datadog"

	_ "suumoscrape/internal/export/csv"
	_ "suumoscrape/internal/export/sqlite"
)

// defaultListingURL is the fully-formed search URL, query-string filters
// included, that a default run starts from.
const defaultListingURL = "https://suumo.jp/jj/bukken/ichiran/JJ012FC001/?ar=030&bs=011&ra=030013" +
	"&rnek=000519120&rnek=000522350&rnek=000539120&rnek=000502060&rnek=000506000" +
	"&rnek=000520550&rnek=000515330&rnek=000529160&rnek=000529650&rnek=030501820" +
	"&rnek=030541160&rnek=030517470&rnek=030541280&rnek=030505600&rnek=030532110" +
	"&rnek=030527280&rnek=030513930&rnek=030500640&rnek=030506640&rnek=030528500" +
	"&rnek=030511640&rnek=030536880&rnek=057312220&rnek=001502060&rnek=001519160" +
	"&rnek=001514430&rnek=001519680&rnek=001519690&rnek=001528860&rnek=001527320" +
	"&rnek=001527360&rnek=001534900&rnek=001520030&rnek=001531910&rnek=004520460" +
	"&rnek=004550050&rnek=004520870&rnek=004350015&rnek=004308710&rnek=007050020" +
	"&rnek=007050025&rnek=007050030&rnek=007008030&rnek=007028870&cn=30&pc=30"

// backendCloser is the minimal interface used to manage a metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer
	Client *http.Client

	Sleep          func(d time.Duration)
	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
}

// runConfig holds the parsed flags for a run.
type runConfig struct {
	StartURL string
	Output   string
	Sink     string
	Table    string
	Timeout  time.Duration
	Delay    time.Duration
	Preview  int
	LogJSON  bool

	JobName    string
	Metrics    bool
	DDTagsCSV  string
	FlushEvery time.Duration
}

// main is intentionally small: it wires real dependencies and exits with a code.
func main() {
	// Datadog credentials may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	code := run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Client: http.DefaultClient,
		Sleep:  time.Sleep,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
	})
	os.Exit(code)
}

// run executes the crawl and returns an exit code.
//
// Exit codes:
//   - 0: success.
//   - 1: operational failure (first listing fetch failed, zero detail URLs,
//     output sink failure).
//   - 2: configuration error.
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	if cfg.Metrics {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(cfg.DDTagsCSV), "tool:suumo-scrape")
		backend, err := d.BackendFactory(ctx, cfg.JobName, tags, cfg.FlushEvery)
		if err != nil {
			fmt.Fprintf(d.Stderr, "datadog backend init failed: %v\n", err)
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			_ = metrics.Flush()
			_ = backend.Close()
		}()
	}

	var logJSON io.Writer
	if cfg.LogJSON {
		logJSON = d.Stdout
	}
	loader := fetch.NewLoader(d.Client, fetch.Options{
		Timeout: cfg.Timeout,
		JobName: cfg.JobName,
		LogJSON: logJSON,
	})

	walker := listing.NewWalker(loader, listing.Options{
		Delay: cfg.Delay,
		Sleep: d.Sleep,
		Warn:  d.Stderr,
	})

	urls, err := walker.Walk(ctx, cfg.StartURL)
	if err != nil {
		if errors.Is(err, listing.ErrNoDetailURLs) {
			fmt.Fprintf(d.Stderr, "%v\n", err)
		} else {
			fmt.Fprintf(d.Stderr, "listing walk failed: %v\n", err)
		}
		return 1
	}

	rows := collectRows(ctx, loader, urls, cfg, d)

	sink, err := export.Open(ctx, cfg.Sink, export.Config{Path: cfg.Output, Table: cfg.Table})
	if err != nil {
		fmt.Fprintf(d.Stderr, "open sink: %v\n", err)
		return 2
	}
	if err := sink.WriteRows(ctx, detail.Columns, rows); err != nil {
		fmt.Fprintf(d.Stderr, "write output: %v\n", err)
		return 1
	}

	if cfg.Preview > 0 && !cfg.LogJSON {
		if err := export.Preview(d.Stdout, detail.Columns, rows, cfg.Preview); err != nil {
			fmt.Fprintf(d.Stderr, "preview: %v\n", err)
		}
	}
	fmt.Fprintf(d.Stderr, "wrote %d rows to %s\n", len(rows), cfg.Output)

	return 0
}

// collectRows fetches each detail page in walk order and extracts its row.
// Failures never abort the crawl: a failed fetch or parse degrades to an
// all-null row carrying only the URL, with a diagnostic on stderr.
func collectRows(ctx context.Context, loader *fetch.Loader, urls []string, cfg runConfig, d deps) []*detail.Row {
	rows := make([]*detail.Row, 0, len(urls))

	for i, u := range urls {
		rows = append(rows, detailRow(ctx, loader, u, cfg.JobName, d.Stderr))
		if i < len(urls)-1 {
			d.Sleep(cfg.Delay)
		}
	}

	return rows
}

func detailRow(ctx context.Context, loader *fetch.Loader, u, job string, warn io.Writer) *detail.Row {
	html, err := loader.Fetch(ctx, u)
	if err != nil {
		fmt.Fprintf(warn, "[WARN] fetch %s: %v\n", u, err)
		metrics.RecordRow(job, "null")
		return detail.NewRow(u)
	}

	row, err := detail.Extract(html, u)
	if err != nil {
		fmt.Fprintf(warn, "[WARN] parse %s: %v\n", u, err)
		metrics.RecordRow(job, "null")
		return detail.NewRow(u)
	}

	metrics.RecordRow(job, "extracted")
	return row
}

// parseFlags parses command arguments into a validated runConfig. It does not
// exit the process; the caller decides the exit code.
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("suumo-scrape", flag.ContinueOnError)

	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)
	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage of %s:\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	fs.StringVar(&cfg.StartURL, "url", defaultListingURL, "Listing search URL to start from (filters included)")
	fs.StringVar(&cfg.Output, "o", "suumo_results.csv", "Output path (CSV file, or SQLite database with -sink sqlite)")
	fs.StringVar(&cfg.Sink, "sink", "csv", "Output sink: csv or sqlite")
	fs.StringVar(&cfg.Table, "table", "listings", "Table name for the sqlite sink")
	fs.DurationVar(&cfg.Timeout, "timeout", 20*time.Second, "HTTP timeout per request")
	fs.DurationVar(&cfg.Delay, "delay", 1500*time.Millisecond, "Politeness delay between requests")
	fs.IntVar(&cfg.Preview, "preview", 5, "Rows to print after a successful run (0 disables)")
	fs.BoolVar(&cfg.LogJSON, "log_json", false, "Emit one JSONL record per fetch on stdout (disables the preview)")

	fs.StringVar(&cfg.JobName, "name", "suumo_scrape", "Logical job name used in metrics tags")
	fs.BoolVar(&cfg.Metrics, "metrics", false, "Enable the Datadog metrics backend")
	fs.StringVar(&cfg.DDTagsCSV, "dd_tags", "", "Extra Datadog tags CSV (e.g. env:prod,service:scrape)")
	fs.DurationVar(&cfg.FlushEvery, "metrics_flush", 1*time.Minute, "Datadog flush interval")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if strings.TrimSpace(cfg.StartURL) == "" {
		return runConfig{}, errors.New("missing -url")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return runConfig{}, errors.New("missing -o <output path>")
	}
	if cfg.Delay < 0 {
		return runConfig{}, errors.New("-delay must be >= 0")
	}
	if cfg.Preview < 0 {
		return runConfig{}, errors.New("-preview must be >= 0")
	}

	return cfg, nil
}
