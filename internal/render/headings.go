package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pagerouter/internal/domain/content"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns heading text into an anchor id the way GitHub does:
// lower case, punctuation dropped, spaces become dashes.
func Slugify(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}

// slugIDs implements parser.IDs. One instance is used per document so
// duplicate headings get -1, -2 suffixes.
type slugIDs struct {
	seen map[string]int
}

func newSlugIDs() *slugIDs {
	return &slugIDs{seen: make(map[string]int)}
}

func (s *slugIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	base := Slugify(string(value))
	if base == "" {
		base = "heading"
		if kind != ast.KindHeading {
			base = "id"
		}
	}
	n, taken := s.seen[base]
	if !taken {
		s.seen[base] = 0
		return []byte(base)
	}
	id := base
	for {
		n++
		id = fmt.Sprintf("%s-%d", base, n)
		if _, dup := s.seen[id]; !dup {
			break
		}
	}
	s.seen[base] = n
	s.seen[id] = 0
	return []byte(id)
}

func (s *slugIDs) Put(value []byte) {
	s.seen[string(value)] = 0
}

func headingID(n ast.Node) string {
	v, ok := n.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	}
	return ""
}

// plainText concatenates the text content below n.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(t.Value)
			case *ast.AutoLink:
				b.Write(t.Label(src))
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

func collectHeadings(doc ast.Node, src []byte) []content.Heading {
	var out []content.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			out = append(out, content.Heading{
				Depth: h.Level,
				Text:  strings.TrimSpace(plainText(h, src)),
				ID:    headingID(h),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// headingRenderer wraps heading content in a link to its own anchor and
// drops headings up to hiddenLevel; the page title comes from front matter.
type headingRenderer struct {
	hiddenLevel int
}

func (r *headingRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHeading, r.renderHeading)
}

func (r *headingRenderer) renderHeading(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Heading)
	if n.Level <= r.hiddenLevel {
		return ast.WalkSkipChildren, nil
	}
	id := headingID(n)
	if entering {
		_, _ = fmt.Fprintf(w, "<h%d", n.Level)
		if n.Attributes() != nil {
			html.RenderAttributes(w, n, html.HeadingAttributeFilter)
		}
		_ = w.WriteByte('>')
		if id != "" {
			_, _ = w.WriteString(`<a href="#`)
			_, _ = w.Write(util.EscapeHTML([]byte(id)))
			_, _ = w.WriteString(`">`)
		}
		return ast.WalkContinue, nil
	}
	if id != "" {
		_, _ = w.WriteString("</a>")
	}
	_, _ = fmt.Fprintf(w, "</h%d>\n", n.Level)
	return ast.WalkContinue, nil
}
