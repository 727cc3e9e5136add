// Package listing walks the paginated listing index and collects detail-page
// URLs in first-occurrence order.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"suumoscrape/internal/detail"
)

// ErrNoDetailURLs is returned when the entire walk finds zero detail links.
// It signals a structural mismatch between this package's assumptions and the
// live page markup, and aborts the run.
var ErrNoDetailURLs = errors.New("no detail URLs found; the page structure may have changed")

// detailPathMarkers identify anchors pointing at property detail pages.
var detailPathMarkers = []string{"/jj/bukken/", "/ms/", "/bukken/"}

// nextPageLabels is the fallback when no a[rel=next] exists. Exact match
// against normalized anchor text; if the site's phrasing drifts, the walk
// silently ends early. Known limitation.
var nextPageLabels = map[string]bool{
	"次へ":    true,
	"次の30件": true,
	"次のページ": true,
}

// Fetcher loads one page. Implemented by fetch.Loader.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options configures a Walker.
type Options struct {
	// Delay is the politeness pause between successive page fetches.
	Delay time.Duration

	// Sleep is a seam for tests. If nil, time.Sleep is used.
	Sleep func(time.Duration)

	// Warn receives diagnostics for recoverable failures. If nil, they are
	// discarded.
	Warn io.Writer
}

// Walker follows listing pagination until no next link is found.
type Walker struct {
	fetcher Fetcher
	delay   time.Duration
	sleep   func(time.Duration)
	warn    io.Writer
}

// NewWalker creates a Walker over the given fetcher.
func NewWalker(fetcher Fetcher, opts Options) *Walker {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	warn := opts.Warn
	if warn == nil {
		warn = io.Discard
	}
	return &Walker{
		fetcher: fetcher,
		delay:   opts.Delay,
		sleep:   sleep,
		warn:    warn,
	}
}

// Walk fetches listing pages starting at startURL, following next links until
// none is found, and returns the deduplicated detail URLs in discovery order.
//
// The first listing fetch failing is fatal: the crawl cannot proceed without
// at least one page. A later listing fetch failing only ends the walk, since
// no next link can be derived from a page we do not have; URLs collected so
// far are kept.
func (w *Walker) Walk(ctx context.Context, startURL string) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)

	pageURL := startURL
	for page := 1; pageURL != ""; page++ {
		html, err := w.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetch first listing page %s: %w", pageURL, err)
			}
			fmt.Fprintf(w.warn, "[WARN] fetch listing page %s: %v\n", pageURL, err)
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("parse first listing page %s: %w", pageURL, err)
			}
			fmt.Fprintf(w.warn, "[WARN] parse listing page %s: %v\n", pageURL, err)
			break
		}

		for _, u := range detailURLs(doc, pageURL) {
			if seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}

		pageURL = nextPageURL(doc, pageURL)
		if pageURL != "" {
			w.sleep(w.delay)
		}
	}

	if len(urls) == 0 {
		return nil, ErrNoDetailURLs
	}
	return urls, nil
}

// detailURLs returns the unique detail links on one listing page, resolved
// against the page's own URL, in document order.
func detailURLs(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)

	var urls []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || !isDetailHref(href) {
			return
		}
		full := resolveHref(base, href)
		if seen[full] {
			return
		}
		seen[full] = true
		urls = append(urls, full)
	})

	return urls
}

func isDetailHref(href string) bool {
	for _, marker := range detailPathMarkers {
		if strings.Contains(href, marker) {
			return true
		}
	}
	return false
}

// nextPageURL finds the next listing page: an explicit a[rel=next] first,
// otherwise the first anchor whose normalized text is a known next-page
// label. Returns "" when neither exists, which ends the walk.
func nextPageURL(doc *goquery.Document, pageURL string) string {
	next := doc.Find(`a[rel="next"]`).First()
	if next.Length() == 0 {
		doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if nextPageLabels[detail.Normalize(a.Text())] {
				next = a
				return false
			}
			return true
		})
	}

	href, _ := next.Attr("href")
	if strings.TrimSpace(href) == "" {
		return ""
	}

	base, _ := url.Parse(pageURL)
	return resolveHref(base, href)
}

// resolveHref resolves href against base, returning an absolute URL string.
// If href is invalid, it is returned unchanged.
func resolveHref(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
