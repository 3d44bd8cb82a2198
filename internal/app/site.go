// Package app wires the content pipeline together. A Site is built once
// from configuration and answers every routing, resolution, compilation and
// metadata question for the lifetime of one index.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pagerouter/internal/cache"
	"pagerouter/internal/domain/config"
	"pagerouter/internal/domain/content"
	"pagerouter/internal/domain/site"
	"pagerouter/internal/index"
	"pagerouter/internal/ingest"
	"pagerouter/internal/logfields"
	"pagerouter/internal/meta"
	"pagerouter/internal/metrics"
	"pagerouter/internal/render"
	"pagerouter/internal/resolve"
	"pagerouter/internal/routing"
)

type Options struct {
	Config config.Config
	// Store backs the persistent document cache. Optional.
	Store      *index.Store
	Recorder   metrics.Recorder
	Components render.Components
	Renderer   *render.TemplateRenderer
}

// Site is immutable after New. Rebuilding means constructing a new Site.
type Site struct {
	id         string
	cfg        config.Config
	files      *ingest.PathIndex
	classifier *routing.Classifier
	routes     *RouteBuilder
	resolver   *resolve.Resolver
	compiler   *render.Compiler
	renderer   *render.TemplateRenderer
	metadata   cache.Cache[meta.Metadata]
	posts      []content.Post
	rec        metrics.Recorder
	built      time.Time
}

// Page is one fully resolved pathname. Document is nil for virtual and
// missing routes.
type Page struct {
	Route    site.Route
	Document *content.Document
	Meta     meta.Metadata
	Posts    []content.Post
	Category string
}

func (p Page) Found() bool { return p.Route.Found() }

// New scans the content tree and builds every pipeline stage. A content
// tree that cannot be read is fatal.
func New(opt Options) (*Site, error) {
	cfg := opt.Config
	rec := opt.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	files, warns, err := ingest.BuildPathIndex(cfg.Build.PagesDir)
	if err != nil {
		return nil, fmt.Errorf("build path index: %w", err)
	}
	for _, w := range warns {
		slog.Warn(w.Msg, logfields.Path(w.Path))
	}

	ignore, err := routing.PredicatesFromConfig(cfg.Routes.Ignored)
	if err != nil {
		return nil, err
	}
	classifier := routing.NewClassifier(cfg.Routes.Virtual, files, ignore)

	renderer := opt.Renderer
	if renderer == nil {
		if renderer, err = render.NewTemplateRenderer(); err != nil {
			return nil, err
		}
	}
	for pathname, layout := range cfg.Routes.Virtual {
		if err := renderer.CheckLayouts(layout); err != nil {
			return nil, fmt.Errorf("virtual route /%s: %w", pathname, err)
		}
	}

	strategy := cfg.CacheStrategy()
	// sources and metadata are cheap to rebuild and must track the files on
	// disk, so only compiled documents persist
	memoryStrategy := strategy
	if memoryStrategy == config.CachePersistent {
		memoryStrategy = config.CacheMemoizing
	}
	var backend cache.Backend
	if opt.Store != nil {
		backend = opt.Store.Documents()
	}

	resolver := resolve.New(files, resolve.Options{
		Root:          cfg.Build.PagesDir,
		LocalesDir:    cfg.Build.LocalesDir,
		DefaultLocale: cfg.Site.DefaultLocale,
		Cache:         cache.New[content.Source](memoryStrategy, "markdown", nil, rec),
	})
	compiler := render.NewCompiler(render.Options{Components: opt.Components},
		cache.New[content.Document](strategy, "documents", backend, rec), rec)

	posts, postWarns, err := ingest.ScanPosts(files)
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	for _, w := range postWarns {
		slog.Warn(w.Msg, logfields.Path(w.Path))
	}

	s := &Site{
		id:         uuid.NewString(),
		cfg:        cfg,
		files:      files,
		classifier: classifier,
		routes:     &RouteBuilder{Classifier: classifier},
		resolver:   resolver,
		compiler:   compiler,
		renderer:   renderer,
		metadata:   cache.New[meta.Metadata](memoryStrategy, "metadata", nil, rec),
		posts:      posts,
		rec:        rec,
		built:      cfg.Build.Now,
	}
	if s.built.IsZero() {
		s.built = time.Now()
	}

	n := len(classifier.Routes())
	rec.SetIndexedRoutes(n)
	slog.Info("site indexed",
		logfields.BuildID(s.id),
		logfields.Routes(n),
		slog.Int("files", files.Len()),
		slog.Int("posts", len(posts)),
		logfields.Cache(string(strategy)))
	return s, nil
}

// ID identifies this indexing run in logs and build records.
func (s *Site) ID() string { return s.id }

func (s *Site) Config() config.Config { return s.cfg }

// Built is the time the site was indexed.
func (s *Site) Built() time.Time { return s.built }

func (s *Site) Renderer() render.Renderer { return s.renderer }

// Pathname joins URL segments into a normalized pathname.
func (s *Site) Pathname(segments []string) string {
	return ingest.CleanPathname(strings.Join(segments, "/"))
}

// RouteFor splits a pathname back into URL segments.
func (s *Site) RouteFor(pathname string) []string {
	return site.Route{Pathname: ingest.CleanPathname(pathname)}.Segments()
}

// Routes lists every servable pathname, ignored files excluded.
func (s *Site) Routes() []string {
	return s.classifier.Routes()
}

// IgnoredRoutes lists file-backed pathnames left out of Routes.
func (s *Site) IgnoredRoutes() []string {
	var out []string
	for _, p := range s.classifier.Files().Pathnames() {
		if s.classifier.Ignored(p) {
			out = append(out, p)
		}
	}
	return out
}

// ExportRoutes lists the routes of Routes with their output paths.
func (s *Site) ExportRoutes() []site.Route {
	return s.routes.BuildRoutes()
}

// Lookup classifies pathname. Ignored pathnames still resolve.
func (s *Site) Lookup(pathname string) site.Route {
	return s.routes.Route(ingest.CleanPathname(pathname))
}

// MarkdownFile returns the source behind pathname, or a zero Source.
func (s *Site) MarkdownFile(ctx context.Context, pathname string) (content.Source, error) {
	return s.resolver.Resolve(ctx, pathname)
}

// Content compiles source. filename decides between Markdown and MDX.
func (s *Site) Content(ctx context.Context, source, filename string) (content.Document, error) {
	if err := ctx.Err(); err != nil {
		return content.Document{}, err
	}
	return s.compiler.Compile(source, filename)
}

// PageMetadata synthesizes the head metadata of pathname from the front
// matter of its source, if any.
func (s *Site) PageMetadata(ctx context.Context, pathname string) (meta.Metadata, error) {
	pathname = ingest.CleanPathname(pathname)
	return s.metadata.Do(pathname, func() (meta.Metadata, error) {
		src, err := s.resolver.Resolve(ctx, pathname)
		if err != nil {
			return meta.Metadata{}, err
		}
		var fm content.FrontMatter
		if src.Found() {
			fm, _, err = ingest.ParseFrontMatter([]byte(src.Text))
			if err != nil {
				return meta.Metadata{}, fmt.Errorf("metadata %s: %w", src.Filename, err)
			}
			// blog files are served under posts/, their category lives in the
			// source path
			if fm.Category == "" {
				if c, ok := meta.FeedCategory(src.Filename); ok {
					fm.Category = c
				}
			}
		}
		return meta.Synthesize(s.cfg.Site, fm, pathname), nil
	})
}

// Page resolves pathname end to end. A missing route is a Page whose
// Route kind is not found, not an error.
func (s *Site) Page(ctx context.Context, pathname string) (Page, error) {
	p, err := s.page(ctx, pathname)
	switch {
	case err != nil:
		s.rec.IncPageOutcome(metrics.OutcomeError)
	case p.Route.Kind == site.RouteVirtual:
		s.rec.IncPageOutcome(metrics.OutcomeVirtual)
	case p.Route.Kind == site.RouteFile:
		s.rec.IncPageOutcome(metrics.OutcomeFile)
	default:
		s.rec.IncPageOutcome(metrics.OutcomeNotFound)
	}
	return p, err
}

func (s *Site) page(ctx context.Context, pathname string) (Page, error) {
	route := s.Lookup(pathname)
	slog.Debug("page", logfields.Pathname(route.Pathname), logfields.RouteKind(string(route.Kind)))

	switch route.Kind {
	case site.RouteVirtual:
		m, err := s.PageMetadata(ctx, route.Pathname)
		if err != nil {
			return Page{}, err
		}
		p := Page{Route: route, Meta: m}
		s.attachPosts(&p, route.Layout)
		return p, nil

	case site.RouteFile:
		src, err := s.MarkdownFile(ctx, route.Pathname)
		if err != nil {
			return Page{}, err
		}
		if !src.Found() {
			return Page{Route: site.Route{Kind: site.RouteNotFound, Pathname: route.Pathname}}, nil
		}
		doc, err := s.Content(ctx, src.Text, src.Filename)
		if err != nil {
			return Page{}, err
		}
		m, err := s.PageMetadata(ctx, route.Pathname)
		if err != nil {
			return Page{}, err
		}
		p := Page{Route: route, Document: &doc, Meta: m}
		s.attachPosts(&p, doc.FrontMatter.Layout)
		return p, nil
	}
	return Page{Route: route}, nil
}

const blogLayout = "blog"

func (s *Site) attachPosts(p *Page, layout string) {
	if layout != blogLayout {
		return
	}
	p.Category = s.blogCategory(p.Route.Pathname)
	p.Posts = s.PostsIn(p.Category)
}

// blogCategory is the configured feed category named by the last segment
// of pathname, if any.
func (s *Site) blogCategory(pathname string) string {
	segs := s.RouteFor(pathname)
	if len(segs) == 0 {
		return ""
	}
	last := segs[len(segs)-1]
	if last == allPosts {
		return ""
	}
	if _, ok := s.cfg.Site.FeedFile(last); ok {
		return last
	}
	return ""
}

const allPosts = "all"

// Posts returns every post, newest first.
func (s *Site) Posts() []content.Post {
	return s.posts
}

// PostsIn filters posts by front matter category. An empty category or
// "all" returns every post.
func (s *Site) PostsIn(category string) []content.Post {
	if category == "" || category == allPosts {
		return s.posts
	}
	var out []content.Post
	for _, p := range s.posts {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// RenderPage renders a found page with its layout.
func (s *Site) RenderPage(ctx context.Context, p Page) ([]byte, error) {
	return s.renderer.RenderPage(ctx, render.PageView{
		Site:       s.cfg.Site,
		Meta:       p.Meta,
		Route:      p.Route,
		Document:   p.Document,
		Posts:      p.Posts,
		Category:   p.Category,
		Generated:  s.built,
		LiveReload: s.cfg.IsDevelopment(),
	})
}

func (s *Site) RenderNotFound(ctx context.Context, path string) ([]byte, error) {
	m := meta.Synthesize(s.cfg.Site, content.FrontMatter{Title: "Page not found"}, "404")
	return s.renderer.RenderNotFound(ctx, render.NotFoundView{
		Site:       s.cfg.Site,
		Meta:       m,
		Path:       path,
		LiveReload: s.cfg.IsDevelopment(),
	})
}

func (s *Site) RenderError(ctx context.Context, requestID string) ([]byte, error) {
	m := meta.Synthesize(s.cfg.Site, content.FrontMatter{Title: "Internal error"}, "500")
	return s.renderer.RenderError(ctx, render.ErrorView{
		Site:       s.cfg.Site,
		Meta:       m,
		RequestID:  requestID,
		LiveReload: s.cfg.IsDevelopment(),
	})
}
