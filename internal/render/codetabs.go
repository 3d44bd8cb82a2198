package render

import (
	"fmt"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var KindCodeTabs = ast.NewNodeKind("CodeTabs")

// CodeTabs groups adjacent fenced code blocks so they render as one tabbed
// box, one tab per block.
type CodeTabs struct {
	ast.BaseBlock
}

func (n *CodeTabs) Kind() ast.NodeKind { return KindCodeTabs }

func (n *CodeTabs) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type codeTabsTransformer struct{}

func (codeTabsTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	type run struct {
		parent ast.Node
		blocks []ast.Node
	}
	var runs []run

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || !n.HasChildren() {
			return ast.WalkContinue, nil
		}
		var cur []ast.Node
		flush := func() {
			if len(cur) > 1 {
				runs = append(runs, run{parent: n, blocks: cur})
			}
			cur = nil
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Kind() == ast.KindFencedCodeBlock {
				cur = append(cur, c)
				continue
			}
			flush()
		}
		flush()
		return ast.WalkContinue, nil
	})

	for _, r := range runs {
		tabs := &CodeTabs{}
		r.parent.InsertBefore(r.parent, r.blocks[0], tabs)
		for _, b := range r.blocks {
			r.parent.RemoveChild(r.parent, b)
			tabs.AppendChild(tabs, b)
		}
	}
}

type codeTabsRenderer struct{}

func (codeTabsRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindCodeTabs, renderCodeTabs)
}

func renderCodeTabs(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<div class="code-tabs">` + "\n")
	_, _ = w.WriteString(`<div class="code-tabs-list" role="tablist">`)
	i := 0
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		label := fmt.Sprintf("Tab %d", i+1)
		if fcb, ok := c.(*ast.FencedCodeBlock); ok {
			if lang := fcb.Language(source); len(lang) > 0 {
				label = string(lang)
			}
		}
		selected := "false"
		if i == 0 {
			selected = "true"
		}
		_, _ = fmt.Fprintf(w, `<button role="tab" aria-selected="%s" data-tab="%d">`, selected, i)
		_, _ = w.Write(util.EscapeHTML([]byte(label)))
		_, _ = w.WriteString("</button>")
		i++
	}
	_, _ = w.WriteString("</div>\n")
	return ast.WalkContinue, nil
}
