package render

import (
	"bytes"
	"html/template"
	"log/slog"
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
)

// Component renders one custom tag embedded in an .mdx page. children is
// the already compiled HTML between the opening and closing tag.
type Component interface {
	Render(w util.BufWriter, props map[string]string, children []byte) error
}

type ComponentFunc func(w util.BufWriter, props map[string]string, children []byte) error

func (f ComponentFunc) Render(w util.BufWriter, props map[string]string, children []byte) error {
	return f(w, props, children)
}

// Components maps a tag name to its renderer. Names are matched case
// insensitively since HTML tag names are.
type Components map[string]Component

// normalize lower cases every name. When two names differ only by case the
// one sorting first wins.
func (c Components) normalize() Components {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make(Components, len(c))
	for _, k := range names {
		key := strings.ToLower(k)
		if _, dup := out[key]; dup {
			slog.Warn("duplicate component name ignored", slog.String("component", k))
			continue
		}
		out[key] = c[k]
	}
	return out
}

// lookup expects a normalized registry.
func (c Components) lookup(name string) (Component, bool) {
	comp, ok := c[strings.ToLower(name)]
	return comp, ok
}

var componentTemplates = template.Must(template.New("components").Option("missingkey=zero").Parse(`
{{define "banner"}}<div class="banner banner-{{or .Props.type "default"}}">{{if .Props.link}}<a href="{{.Props.link}}">{{.Children}}</a>{{else}}{{.Children}}{{end}}</div>{{end}}
{{define "badge"}}<a class="badge badge-{{or .Props.kind "default"}}" href="{{.Props.href}}"><span class="badge-label">{{.Props.badgetext}}</span>{{.Children}}</a>{{end}}
{{define "button"}}<a class="button button-{{or .Props.variant "primary"}}" href="{{.Props.href}}">{{.Children}}</a>{{end}}
`))

func templateComponent(name string) Component {
	return ComponentFunc(func(w util.BufWriter, props map[string]string, children []byte) error {
		return componentTemplates.ExecuteTemplate(w, name, struct {
			Props    map[string]string
			Children template.HTML
		}{props, template.HTML(bytes.TrimSpace(children))})
	})
}

// DefaultComponents are the tags every .mdx page may use.
func DefaultComponents() Components {
	return Components{
		"WithBanner": templateComponent("banner"),
		"WithBadge":  templateComponent("badge"),
		"Button":     templateComponent("button"),
	}
}

var KindComponent = ast.NewNodeKind("Component")

// ComponentNode is a registered component whose opening and closing tags
// sit in separate HTML blocks; the Markdown between them becomes its
// children.
type ComponentNode struct {
	ast.BaseBlock
	Name  string
	Props map[string]string
}

func (n *ComponentNode) Kind() ast.NodeKind { return KindComponent }

func (n *ComponentNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name}, nil)
}

func htmlBlockText(n *ast.HTMLBlock, source []byte) []byte {
	var raw bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw.Write(seg.Value(source))
	}
	if n.HasClosure() {
		raw.Write(n.ClosureLine.Value(source))
	}
	return raw.Bytes()
}

type componentTransformer struct {
	components Components
}

func (t componentTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	type span struct {
		open, close ast.Node
		name        string
		props       map[string]string
	}
	var spans []span

	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		hb, ok := c.(*ast.HTMLBlock)
		if !ok {
			continue
		}
		raw := htmlBlockText(hb, source)
		name, props, _, selfClosing, ok := parseComponent(raw)
		if !ok || selfClosing {
			continue
		}
		if _, found := t.components.lookup(name); !found {
			continue
		}
		closing := []byte("</" + name)
		if bytes.Contains(bytes.ToLower(raw), closing) {
			continue
		}
		for s := c.NextSibling(); s != nil; s = s.NextSibling() {
			if shb, ok := s.(*ast.HTMLBlock); ok {
				text := bytes.ToLower(bytes.TrimSpace(htmlBlockText(shb, source)))
				if bytes.HasPrefix(text, closing) {
					spans = append(spans, span{open: c, close: s, name: name, props: props})
					c = s
					break
				}
			}
		}
	}

	for _, sp := range spans {
		node := &ComponentNode{Name: sp.name, Props: sp.props}
		doc.InsertBefore(doc, sp.open, node)
		for s := sp.open.NextSibling(); s != nil && s != sp.close; {
			next := s.NextSibling()
			doc.RemoveChild(doc, s)
			node.AppendChild(node, s)
			s = next
		}
		doc.RemoveChild(doc, sp.open)
		doc.RemoveChild(doc, sp.close)
	}
}

// componentRenderer renders components in .mdx pages. HTML blocks whose
// first tag is not a registered component are emitted verbatim.
type componentRenderer struct {
	components Components
	// convert compiles Markdown found inside a single HTML block.
	convert func(src []byte) ([]byte, error)
	// render renders a subtree of the current document.
	render func(w *bytes.Buffer, source []byte, n ast.Node) error
}

func (r *componentRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHTMLBlock, r.renderHTMLBlock)
	reg.Register(KindComponent, r.renderComponent)
}

func (r *componentRenderer) renderComponent(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ComponentNode)
	c, found := r.components.lookup(n.Name)
	if !found {
		return ast.WalkContinue, nil
	}
	var children bytes.Buffer
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		if err := r.render(&children, source, ch); err != nil {
			return ast.WalkStop, err
		}
	}
	if err := c.Render(w, n.Props, children.Bytes()); err != nil {
		return ast.WalkStop, err
	}
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

func (r *componentRenderer) renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	raw := htmlBlockText(node.(*ast.HTMLBlock), source)

	if name, props, inner, _, ok := parseComponent(raw); ok {
		if c, found := r.components.lookup(name); found {
			var children []byte
			if len(bytes.TrimSpace(inner)) > 0 && r.convert != nil {
				out, err := r.convert(inner)
				if err != nil {
					return ast.WalkStop, err
				}
				children = out
			}
			if err := c.Render(w, props, children); err != nil {
				return ast.WalkStop, err
			}
			_ = w.WriteByte('\n')
			return ast.WalkSkipChildren, nil
		}
	}
	_, _ = w.Write(raw)
	return ast.WalkSkipChildren, nil
}

// parseComponent reads the leading tag of an HTML block. inner is the text
// between that tag and its last matching closing tag.
func parseComponent(raw []byte) (name string, props map[string]string, inner []byte, selfClosing, ok bool) {
	z := html.NewTokenizer(bytes.NewReader(raw))
	offset := 0
	tt := z.Next()
	for tt == html.TextToken && len(bytes.TrimSpace(z.Raw())) == 0 {
		offset += len(z.Raw())
		tt = z.Next()
	}
	if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
		return "", nil, nil, false, false
	}
	offset += len(z.Raw())

	tagName, hasAttr := z.TagName()
	name = string(tagName)
	props = make(map[string]string)
	for hasAttr {
		var k, v []byte
		k, v, hasAttr = z.TagAttr()
		props[string(k)] = string(v)
	}
	if tt == html.SelfClosingTagToken {
		return name, props, nil, true, true
	}

	rest := raw[offset:]
	if end := bytes.LastIndex(bytes.ToLower(rest), []byte("</"+name)); end >= 0 {
		rest = rest[:end]
	}
	return name, props, rest, false, true
}
