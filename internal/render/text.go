package render

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// PlainText strips every tag from compiled HTML and collapses whitespace.
func PlainText(s string) string {
	// keep block boundaries as word breaks
	s = strings.ReplaceAll(s, "</", " </")
	out := html.UnescapeString(stripPolicy.Sanitize(s))
	return strings.Join(strings.Fields(out), " ")
}

// Excerpt returns at most limit runes of the plain text of s, cut at a word
// boundary and suffixed with an ellipsis when shortened.
func Excerpt(s string, limit int) string {
	t := PlainText(s)
	if limit <= 0 || utf8.RuneCountInString(t) <= limit {
		return t
	}
	r := []rune(t)[:limit]
	cut := string(r)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
