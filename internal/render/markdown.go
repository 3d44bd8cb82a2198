package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"pagerouter/internal/cache"
	"pagerouter/internal/domain/build"
	"pagerouter/internal/domain/content"
	"pagerouter/internal/ingest"
	"pagerouter/internal/logfields"
	"pagerouter/internal/metrics"
)

// CompilerVersion changes whenever compiled output for the same input
// changes. Static exports fold it into page fingerprints.
const CompilerVersion = "compiler/v1"

type Options struct {
	// Components are the tags evaluated in .mdx files.
	Components Components
	// HiddenLevel drops headings up to this level from the HTML. They are
	// still reported in Document.Headings.
	HiddenLevel    int
	WordsPerMinute int
}

// Compiler turns Markdown and MDX sources into Documents.
type Compiler struct {
	md    goldmark.Markdown
	mdx   goldmark.Markdown
	wpm   int
	cache cache.Cache[content.Document]
	rec   metrics.Recorder
}

// NewCompiler builds both Markdown pipelines. The component registry is
// fixed here and shared by every document.
func NewCompiler(opt Options, c cache.Cache[content.Document], rec metrics.Recorder) *Compiler {
	if opt.HiddenLevel == 0 {
		opt.HiddenLevel = 2
	}
	if opt.WordsPerMinute <= 0 {
		opt.WordsPerMinute = 200
	}
	if opt.Components == nil {
		opt.Components = DefaultComponents()
	}
	opt.Components = opt.Components.normalize()
	if c == nil {
		c = cache.Passthrough[content.Document]{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Compiler{
		md:    newMarkdown(opt, false),
		mdx:   newMarkdown(opt, true),
		wpm:   opt.WordsPerMinute,
		cache: c,
		rec:   rec,
	}
}

func newMarkdown(opt Options, mdx bool) goldmark.Markdown {
	parserOpts := []parser.Option{
		parser.WithAutoHeadingID(),
		parser.WithASTTransformers(util.Prioritized(codeTabsTransformer{}, 100)),
	}
	nodeRenderers := []util.PrioritizedValue{
		util.Prioritized(&headingRenderer{hiddenLevel: opt.HiddenLevel}, 100),
		util.Prioritized(codeTabsRenderer{}, 100),
	}
	var rendererOpts []renderer.Option

	var cr *componentRenderer
	if mdx {
		cr = &componentRenderer{components: opt.Components}
		parserOpts = append(parserOpts,
			parser.WithASTTransformers(util.Prioritized(componentTransformer{components: opt.Components}, 90)))
		nodeRenderers = append(nodeRenderers, util.Prioritized(cr, 100))
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	rendererOpts = append(rendererOpts, renderer.WithNodeRenderers(nodeRenderers...))

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.Strikethrough,
			extension.Table,
		),
		goldmark.WithParserOptions(parserOpts...),
		goldmark.WithRendererOptions(rendererOpts...),
	)

	if cr != nil {
		cr.convert = func(src []byte) ([]byte, error) {
			out, _, err := convert(md, src)
			return out, err
		}
		cr.render = func(w *bytes.Buffer, source []byte, n ast.Node) error {
			return md.Renderer().Render(w, source, n)
		}
	}
	return md
}

// convert parses and renders body with a fresh id generator so heading
// ids only de-duplicate within one document.
func convert(md goldmark.Markdown, body []byte) ([]byte, ast.Node, error) {
	ctx := parser.NewContext(parser.WithIDs(newSlugIDs()))
	doc := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))
	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), doc, nil
}

// IsMDX reports whether filename is compiled with components enabled.
func IsMDX(filename string) bool {
	return strings.EqualFold(path.Ext(filename), ".mdx")
}

// Compile returns the Document for source. Results are cached by
// (filename, source); failures are returned and never cached.
func (c *Compiler) Compile(source, filename string) (content.Document, error) {
	return c.cache.Do(build.DocumentKey(source, filename), func() (content.Document, error) {
		return c.compile(source, filename)
	})
}

func (c *Compiler) compile(source, filename string) (content.Document, error) {
	start := time.Now()

	fm, body, err := ingest.ParseFrontMatter([]byte(source))
	if err != nil {
		return content.Document{}, fmt.Errorf("compile %s: %w", filename, err)
	}

	md := c.md
	if IsMDX(filename) {
		md = c.mdx
	}
	out, doc, err := convert(md, body)
	if err != nil {
		return content.Document{}, fmt.Errorf("compile %s: %w", filename, err)
	}

	d := content.Document{
		Filename:    filename,
		FrontMatter: fm,
		Headings:    collectHeadings(doc, body),
		ReadingTime: EstimateReadingTime(countWords(doc, body), c.wpm),
		HTML:        template.HTML(out),
	}

	elapsed := time.Since(start)
	c.rec.ObserveCompileDuration(elapsed)
	slog.Debug("compiled", logfields.Filename(filename), logfields.Duration(elapsed))
	return d, nil
}
