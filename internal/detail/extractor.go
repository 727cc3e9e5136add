package detail

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// combineSeparator joins the held floor values and the accumulated
// management values into their combined columns.
const combineSeparator = " / "

// nameSelectors and priceSelectors are tried in order; the first selector
// whose first match yields non-empty normalized text wins. Most specific
// first, generic fallback last.
var (
	nameSelectors = []string{
		"h1",
		".property_view h1",
		".section_h1-title",
		".suumo_h1",
	}
	priceSelectors = []string{
		".property_view .price",
		".price",
		".bukkenTitle",
		".property_view b",
	}
)

// Labels that are not mapped through the synonym table. Floor labels are
// held aside and combined after the scan; management labels accumulate and
// are deduplicated and joined after the scan.
const (
	labelFloor             = "所在階"
	labelTotalFloors       = "階数"
	labelManagementForm    = "管理形態"
	labelManagementCompany = "管理会社"
)

// pair is one raw (label, value) tuple read from the page, in document order.
type pair struct {
	label string
	value string
}

// Extract parses one detail page and returns its row. The row always has the
// full canonical column set with the URL populated; fields whose labels never
// appear stay null.
//
// Pairs are processed in document order, so a later pair mapping to the same
// column overwrites an earlier one.
func Extract(htmlSrc, sourceURL string) (*Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	row := NewRow(sourceURL)

	if name := firstText(doc, nameSelectors); name != "" {
		row.Set(ColumnName, name)
	}
	if price := firstText(doc, priceSelectors); price != "" {
		row.Set(ColumnPrice, price)
	}

	var floorValue, totalFloors string
	var management []string

	for _, p := range extractPairs(doc) {
		label := foldLabel(p.label)

		switch label {
		case labelFloor:
			floorValue = p.value
			continue
		case labelTotalFloors:
			totalFloors = p.value
			continue
		case labelManagementForm, labelManagementCompany:
			management = append(management, p.value)
			continue
		}

		if column, ok := matchSynonym(labelSynonyms, label); ok {
			row.Set(column, p.value)
		}
	}

	if floorValue != "" || totalFloors != "" {
		row.Set(ColumnFloor, joinPresent(floorValue, totalFloors))
	}
	if len(management) > 0 {
		row.Set(ColumnManagement, strings.Join(uniqueInOrder(management), combineSeparator))
	}

	return row, nil
}

// matchSynonym scans the table in declaration order and returns the column of
// the first pattern contained in label.
func matchSynonym(table []Synonym, label string) (string, bool) {
	for _, s := range table {
		if strings.Contains(label, s.Pattern) {
			return s.Column, true
		}
	}
	return "", false
}

// firstText returns the first non-empty normalized text among the selector
// candidates. A selector that matches an element with empty text does not
// stop the scan.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if text := nodeText(node); text != "" {
			return text
		}
	}
	return ""
}

// extractPairs collects (label, value) pairs from two structural sources, in
// this order:
//
//   - <dl> groupings: dt and dd nodes are zipped positionally; a dl whose dt
//     and dd counts differ is skipped wholesale.
//   - table rows: only rows with exactly one <th> and exactly one <td>.
//
// Pairs with an empty label or value are dropped.
func extractPairs(doc *goquery.Document) []pair {
	var pairs []pair

	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dts := dl.Find("dt")
		dds := dl.Find("dd")
		if dts.Length() != dds.Length() {
			return
		}
		dts.Each(func(i int, dt *goquery.Selection) {
			label := nodeText(dt)
			value := nodeText(dds.Eq(i))
			if label != "" && value != "" {
				pairs = append(pairs, pair{label: label, value: value})
			}
		})
	})

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		ths := tr.Find("th")
		tds := tr.Find("td")
		if ths.Length() != 1 || tds.Length() != 1 {
			return
		}
		label := nodeText(ths)
		value := nodeText(tds)
		if label != "" && value != "" {
			pairs = append(pairs, pair{label: label, value: value})
		}
	})

	return pairs
}

// joinPresent joins the non-empty arguments with the combine separator.
func joinPresent(parts ...string) string {
	present := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			present = append(present, p)
		}
	}
	return strings.Join(present, combineSeparator)
}

// uniqueInOrder removes duplicates while preserving first-occurrence order.
func uniqueInOrder(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
