package detail

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/width"

	"github.com/PuerkitoBio/goquery"
)

// Normalize collapses all whitespace runs (including ideographic space) to
// single ASCII spaces and trims the result.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// foldLabel canonicalizes a label for matching: whitespace collapse plus
// half-width/full-width folding, so ﾊﾞﾙｺﾆｰ matches バルコニー and ｍ２-style
// variants do not defeat the synonym scan.
func foldLabel(s string) string {
	return Normalize(width.Fold.String(s))
}

// nodeText renders the selection's text content with a space between text
// nodes, so inline markup inside a label or value does not glue words
// together. The result is normalized.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(n, &b)
	}
	return Normalize(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
