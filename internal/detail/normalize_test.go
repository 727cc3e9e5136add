package detail

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// TestNormalize covers whitespace collapsing, including the ideographic
// space, and trimming.
func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  東京都 　品川区\n大井 ", "東京都 品川区 大井"},
		{"3980万円", "3980万円"},
		{"\t a \t b \n", "a b"},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

// TestFoldLabel verifies half-width katakana and full-width ASCII fold onto
// their canonical forms before synonym matching.
func TestFoldLabel(t *testing.T) {
	t.Parallel()

	if got := foldLabel("ﾊﾞﾙｺﾆｰ面積"); got != "バルコニー面積" {
		t.Fatalf("expected half-width katakana to fold, got %q", got)
	}
	if got := foldLabel("価格（ＲＣ）"); got != "価格(RC)" {
		t.Fatalf("expected full-width ASCII to fold, got %q", got)
	}
}

// TestNodeText verifies inline markup inside a label or value does not glue
// words together.
func TestNodeText(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<dt>築年数<br>（築年月）</dt>`,
	))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := nodeText(doc.Find("dt")); got != "築年数 （築年月）" {
		t.Fatalf("expected space between text nodes, got %q", got)
	}
}
