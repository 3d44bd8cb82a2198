package render

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagerouter/internal/cache"
	"pagerouter/internal/domain/content"
	"pagerouter/internal/domain/site"
	"pagerouter/internal/ingest"
	"pagerouter/internal/meta"
)

func newTestCompiler(c cache.Cache[content.Document]) *Compiler {
	return NewCompiler(Options{}, c, nil)
}

const guide = `---
title: Hello
layout: post
authors: Ada, Grace
---
# Title

## Section

### Sub Section

Body text here.

### Sub Section
`

func TestCompile_FrontMatterAndHeadings(t *testing.T) {
	c := newTestCompiler(nil)
	doc, err := c.Compile(guide, "guide.md")
	require.NoError(t, err)

	assert.Equal(t, "guide.md", doc.Filename)
	assert.Equal(t, "Hello", doc.FrontMatter.Title)
	assert.Equal(t, "post", doc.FrontMatter.Layout)
	assert.Equal(t, []string{"Ada", "Grace"}, doc.FrontMatter.AuthorList())

	assert.Equal(t, []content.Heading{
		{Depth: 1, Text: "Title", ID: "title"},
		{Depth: 2, Text: "Section", ID: "section"},
		{Depth: 3, Text: "Sub Section", ID: "sub-section"},
		{Depth: 3, Text: "Sub Section", ID: "sub-section-1"},
	}, doc.Headings)
}

func TestCompile_HidesTopHeadingsAndWrapsAnchors(t *testing.T) {
	c := newTestCompiler(nil)
	doc, err := c.Compile(guide, "guide.md")
	require.NoError(t, err)

	html := string(doc.HTML)
	assert.NotContains(t, html, "<h1")
	assert.NotContains(t, html, "<h2")
	assert.Contains(t, html, `<h3 id="sub-section"><a href="#sub-section">Sub Section</a></h3>`)
	assert.Contains(t, html, `<h3 id="sub-section-1"><a href="#sub-section-1">Sub Section</a></h3>`)
	assert.Contains(t, html, "<p>Body text here.</p>")
}

func TestCompile_ReadingTime(t *testing.T) {
	c := newTestCompiler(nil)
	doc, err := c.Compile(guide, "guide.md")
	require.NoError(t, err)
	assert.Equal(t, 9, doc.ReadingTime.Words)
	assert.Equal(t, "1 min read", doc.ReadingTime.Text)

	empty, err := c.Compile("---\ntitle: Empty\n---\n", "empty.md")
	require.NoError(t, err)
	assert.Equal(t, "0 min read", empty.ReadingTime.Text)
}

func TestEstimateReadingTime(t *testing.T) {
	cases := []struct {
		words int
		text  string
	}{
		{0, "0 min read"},
		{200, "1 min read"},
		{250, "2 min read"},
		{1000, "5 min read"},
	}
	for _, tc := range cases {
		rt := EstimateReadingTime(tc.words, 200)
		assert.Equal(t, tc.text, rt.Text, "words=%d", tc.words)
		assert.Equal(t, tc.words, rt.Words)
	}
	assert.InDelta(t, 1.25, EstimateReadingTime(250, 200).Minutes, 1e-9)
}

func TestCompile_CodeTabs(t *testing.T) {
	src := "Intro\n\n```js\nconsole.log(1)\n```\n\n```ts\nconsole.log(2)\n```\n\nBetween\n\n```sh\nls\n```\n"
	doc, err := newTestCompiler(nil).Compile(src, "tabs.md")
	require.NoError(t, err)

	html := string(doc.HTML)
	assert.Contains(t, html, `<div class="code-tabs">`)
	assert.Contains(t, html, `<button role="tab" aria-selected="true" data-tab="0">js</button>`)
	assert.Contains(t, html, `<button role="tab" aria-selected="false" data-tab="1">ts</button>`)
	assert.Contains(t, html, `<code class="language-ts">`)
	// a lone block is not grouped
	assert.Equal(t, 1, strings.Count(html, `class="code-tabs"`))
	assert.Contains(t, html, `<code class="language-sh">`)
}

func TestCompile_MarkdownOmitsRawHTML(t *testing.T) {
	src := "<WithBanner link=\"/download\">\n\nGet **Node 20**\n\n</WithBanner>\n\n<div class=\"x\">hi</div>\n"
	doc, err := newTestCompiler(nil).Compile(src, "page.md")
	require.NoError(t, err)

	html := string(doc.HTML)
	assert.NotContains(t, html, `class="banner`)
	assert.NotContains(t, html, `<div class="x">`)
	assert.Contains(t, html, "raw HTML omitted")
	assert.Contains(t, html, "<strong>Node 20</strong>")
}

func TestCompile_MDXComponents(t *testing.T) {
	src := "<WithBanner link=\"/download\">\n\nGet **Node 20**\n\n</WithBanner>\n\n" +
		"<WithBadge href=\"/a\" badgetext=\"New\">\nFresh content\n</WithBadge>\n\n" +
		"<Button href=\"/x\" />\n\n" +
		"<section class=\"plain\">kept</section>\n"
	doc, err := newTestCompiler(nil).Compile(src, "page.mdx")
	require.NoError(t, err)

	html := string(doc.HTML)
	assert.Contains(t, html, `<div class="banner banner-default"><a href="/download"><p>Get <strong>Node 20</strong></p></a></div>`)
	assert.Contains(t, html, `<a class="badge badge-default" href="/a"><span class="badge-label">New</span><p>Fresh content</p></a>`)
	assert.Contains(t, html, `<a class="button button-primary" href="/x"></a>`)
	assert.Contains(t, html, `<section class="plain">kept</section>`)
	assert.NotContains(t, html, "WithBanner")
}

func TestCompile_CustomComponentRegistry(t *testing.T) {
	c := NewCompiler(Options{Components: Components{
		"Note": templateComponent("banner"),
	}}, nil, nil)
	doc, err := c.Compile("<Note type=\"warning\">\n\nCareful\n\n</Note>\n", "note.mdx")
	require.NoError(t, err)
	assert.Contains(t, string(doc.HTML), `<div class="banner banner-warning"><p>Careful</p></div>`)
}

func TestComponents_NormalizedOnce(t *testing.T) {
	reg := Components{
		"CallOut": templateComponent("badge"),
		"callout": templateComponent("button"),
		"Note":    templateComponent("banner"),
	}.normalize()

	assert.Len(t, reg, 2)
	got, ok := reg.lookup("CALLOUT")
	require.True(t, ok)
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, got.Render(w, map[string]string{"href": "/x"}, nil))
	require.NoError(t, w.Flush())
	assert.Contains(t, buf.String(), `class="badge badge-default"`)

	_, ok = reg.lookup("note")
	assert.True(t, ok)
	_, ok = reg.lookup("Missing")
	assert.False(t, ok)
}

func TestCompile_ComponentNamesIgnoreCase(t *testing.T) {
	c := NewCompiler(Options{Components: Components{
		"Note": templateComponent("banner"),
	}}, nil, nil)
	doc, err := c.Compile("<NOTE type=\"info\">\n\nHeads up\n\n</NOTE>\n", "note.mdx")
	require.NoError(t, err)
	assert.Contains(t, string(doc.HTML), `<div class="banner banner-info"><p>Heads up</p></div>`)
}

func TestCompile_MalformedFrontMatterIsNotCached(t *testing.T) {
	memo := cache.NewMemo[content.Document]("documents", nil)
	c := newTestCompiler(memo)

	_, err := c.Compile("---\ntitle: [unclosed\n---\nbody\n", "bad.md")
	require.ErrorIs(t, err, ingest.ErrInvalidFrontMatter)

	_, err = c.Compile("---\ntitle: x\nbody\n", "open.md")
	require.ErrorIs(t, err, ingest.ErrMissingClosingDelimiter)

	assert.Equal(t, 0, memo.Len())
}

func TestCompile_CachedAndDeterministic(t *testing.T) {
	memo := cache.NewMemo[content.Document]("documents", nil)
	c := newTestCompiler(memo)

	first, err := c.Compile(guide, "guide.md")
	require.NoError(t, err)
	second, err := c.Compile(guide, "guide.md")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, memo.Len())

	// the same text under another extension is a separate entry
	_, err = c.Compile(guide, "guide.mdx")
	require.NoError(t, err)
	assert.Equal(t, 2, memo.Len())

	fresh, err := newTestCompiler(nil).Compile(guide, "guide.md")
	require.NoError(t, err)
	assert.Equal(t, first, fresh)
}

func TestIsMDX(t *testing.T) {
	assert.True(t, IsMDX("a/b.mdx"))
	assert.True(t, IsMDX("A.MDX"))
	assert.False(t, IsMDX("a/b.md"))
	assert.False(t, IsMDX("mdx"))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":   "hello-world",
		"Héllo Wörld!":  "hello-world",
		"C++ & Go":      "c--go",
		"snake_case-ok": "snake_case-ok",
		"  Trim me ":    "trim-me",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestPlainTextAndExcerpt(t *testing.T) {
	assert.Equal(t, "Hello world Again & again",
		PlainText("<p>Hello <b>world</b></p><p>Again &amp; again</p>"))
	assert.Equal(t, "one two…", Excerpt("<p>one two three four</p>", 9))
	assert.Equal(t, "short", Excerpt("<p>short</p>", 100))
}

func TestTemplateRenderer(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)
	ctx := context.Background()

	assert.ElementsMatch(t, []string{"about", "blog", "default", "download", "home", "post"}, r.Layouts())
	require.NoError(t, r.CheckLayouts("home", "blog"))
	require.Error(t, r.CheckLayouts("home", "nope"))

	m := meta.Metadata{Title: "Node.js — About Us", Canonical: "https://nodejs.org/about"}
	doc, err := newTestCompiler(nil).Compile("---\ntitle: About Us\nlayout: about\n---\n### Team\n\nHi.\n", "about/index.md")
	require.NoError(t, err)

	out, err := r.RenderPage(ctx, PageView{
		Meta:     m,
		Route:    site.Route{Kind: site.RouteFile, Pathname: "about", Filename: "about/index.md"},
		Document: &doc,
	})
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "<title>Node.js — About Us</title>")
	assert.Contains(t, html, `<link rel="canonical" href="https://nodejs.org/about">`)
	assert.Contains(t, html, `class="layout-about"`)
	assert.Contains(t, html, `<a href="#team">Team</a>`)
	assert.NotContains(t, html, "EventSource")

	out, err = r.RenderPage(ctx, PageView{
		Meta:       m,
		Route:      site.Route{Kind: site.RouteVirtual, Pathname: "", Layout: "home"},
		LiveReload: true,
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `class="hero"`)
	assert.Contains(t, string(out), "EventSource")

	out, err = r.RenderPage(ctx, PageView{
		Meta:     m,
		Route:    site.Route{Kind: site.RouteFile, Pathname: "x"},
		Document: &content.Document{FrontMatter: content.FrontMatter{Layout: "unknown"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `class="layout-docs"`)

	out, err = r.RenderNotFound(ctx, NotFoundView{Meta: m, Path: "/missing"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "/missing")

	out, err = r.RenderError(ctx, ErrorView{Meta: m, RequestID: "req-1"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "req-1")
}
