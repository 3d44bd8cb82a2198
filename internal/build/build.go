// Package build exports a Site to static files.
package build

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"pagerouter/internal/app"
	domainbuild "pagerouter/internal/domain/build"
	"pagerouter/internal/domain/site"
	"pagerouter/internal/index"
	"pagerouter/internal/logfields"
	"pagerouter/internal/metrics"
	"pagerouter/internal/publish"
	"pagerouter/internal/render"
)

type Builder struct {
	Site *app.Site
	// Store keeps page fingerprints between runs. Without it every page
	// is written.
	Store    *index.Store
	Recorder metrics.Recorder
}

type Result struct {
	ID      string
	Routes  int
	Written int
	Skipped int
}

type pageResult struct {
	route       site.Route
	fingerprint string
	written     bool
	err         error
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	rec := b.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	id := b.Site.ID()
	cfg := b.Site.Config()
	outDir := cfg.Build.PublicDir
	log := slog.With(logfields.BuildID(id))

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir public: %w", err)
	}

	previous := map[string]string{}
	if b.Store != nil {
		fps, err := b.Store.Fingerprints()
		if err != nil {
			return nil, fmt.Errorf("load fingerprints: %w", err)
		}
		previous = fps
	}

	configHash, err := hashJSON(cfg.Site)
	if err != nil {
		return nil, err
	}

	routes := b.Site.ExportRoutes()
	results, err := b.buildPages(ctx, routes, outDir, configHash, previous)
	if err != nil {
		return nil, err
	}

	res := &Result{ID: id, Routes: len(routes)}
	current := make(map[string]string, len(results))
	for _, r := range results {
		current[r.route.Pathname] = r.fingerprint
		if r.written {
			res.Written++
		} else {
			res.Skipped++
		}
	}

	if err := b.buildExtras(ctx, outDir); err != nil {
		return nil, err
	}

	if b.Store != nil {
		if err := b.Store.RebuildFingerprints(current); err != nil {
			return nil, fmt.Errorf("save fingerprints: %w", err)
		}
		err := b.Store.RecordBuild(index.BuildRecord{
			ID:       id,
			Started:  started,
			Finished: time.Now(),
			Routes:   res.Routes,
			Written:  res.Written,
			Skipped:  res.Skipped,
		})
		if err != nil {
			return nil, fmt.Errorf("record build: %w", err)
		}
	}

	elapsed := time.Since(started)
	rec.ObserveBuildDuration(elapsed)
	log.Info("build finished",
		logfields.Routes(res.Routes),
		slog.Int("written", res.Written),
		slog.Int("skipped", res.Skipped),
		logfields.Duration(elapsed))
	return res, nil
}

func (b *Builder) workers() int {
	if n := b.Site.Config().Build.Workers; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func (b *Builder) buildPages(
	ctx context.Context,
	routes []site.Route,
	outDir, configHash string,
	previous map[string]string,
) ([]pageResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan site.Route)
	out := make(chan pageResult)

	var wg sync.WaitGroup
	for i := 0; i < b.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range in {
				res := b.buildPage(ctx, r, outDir, configHash, previous[r.Pathname])
				if res.err != nil {
					cancel()
				}
				out <- res
			}
		}()
	}

	go func() {
		defer close(in)
		for _, r := range routes {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	var results []pageResult
	var firstErr error
	for r := range out {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		results = append(results, r)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	sort.Slice(results, func(i, j int) bool { return results[i].route.Pathname < results[j].route.Pathname })
	return results, nil
}

func (b *Builder) buildPage(ctx context.Context, r site.Route, outDir, configHash, previous string) pageResult {
	res := pageResult{route: r}

	page, err := b.Site.Page(ctx, r.Pathname)
	if err != nil {
		res.err = fmt.Errorf("build /%s: %w", r.Pathname, err)
		return res
	}
	if !page.Found() {
		res.err = fmt.Errorf("build /%s: route vanished during export", r.Pathname)
		return res
	}

	fp, err := fingerprint(ctx, b.Site, page, configHash)
	if err != nil {
		res.err = fmt.Errorf("fingerprint /%s: %w", r.Pathname, err)
		return res
	}
	res.fingerprint = fp.RenderHash

	target := filepath.Join(outDir, filepath.FromSlash(r.OutPath))
	if previous == fp.RenderHash && fileExists(target) {
		slog.Debug("unchanged", logfields.Pathname(r.Pathname))
		return res
	}

	html, err := b.Site.RenderPage(ctx, page)
	if err != nil {
		res.err = fmt.Errorf("render /%s: %w", r.Pathname, err)
		return res
	}
	if err := writeFile(outDir, r.OutPath, html); err != nil {
		res.err = err
		return res
	}
	res.written = true
	return res
}

// fingerprint hashes everything the rendered page depends on: its source
// text or post listing, the layout, the site config and the compiler.
func fingerprint(ctx context.Context, s *app.Site, p app.Page, configHash string) (domainbuild.Fingerprint, error) {
	var contentBytes []byte
	layout := p.Route.Layout
	if p.Route.Kind == site.RouteFile {
		src, err := s.MarkdownFile(ctx, p.Route.Pathname)
		if err != nil {
			return domainbuild.Fingerprint{}, err
		}
		contentBytes = []byte(src.Filename + "\x00" + src.Text)
		if p.Document != nil {
			layout = p.Document.FrontMatter.Layout
		}
	}
	if len(p.Posts) > 0 {
		raw, err := json.Marshal(p.Posts)
		if err != nil {
			return domainbuild.Fingerprint{}, err
		}
		contentBytes = append(contentBytes, raw...)
	}

	fp := domainbuild.Fingerprint{
		ContentHash:  domainbuild.HashBytes(contentBytes),
		LayoutHash:   domainbuild.HashBytes([]byte(layout)),
		ConfigHash:   configHash,
		CompilerHash: render.CompilerVersion,
	}
	fp.ComputeRenderHash()
	return fp, nil
}

func (b *Builder) buildExtras(ctx context.Context, outDir string) error {
	notFound, err := b.Site.RenderNotFound(ctx, "")
	if err != nil {
		return fmt.Errorf("build 404: %w", err)
	}
	if err := writeFile(outDir, "404.html", notFound); err != nil {
		return err
	}

	sitemap, err := publish.Sitemap(b.Site)
	if err != nil {
		return fmt.Errorf("build sitemap: %w", err)
	}
	if err := writeFile(outDir, "sitemap.xml", sitemap); err != nil {
		return err
	}

	if err := writeFile(outDir, "robots.txt", publish.Robots(b.Site)); err != nil {
		return err
	}

	manifest, err := publish.Manifest(b.Site)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	if err := writeFile(outDir, "manifest.webmanifest", manifest); err != nil {
		return err
	}

	for _, file := range publish.FeedFiles(b.Site) {
		feed, err := publish.Feed(ctx, b.Site, file)
		if err != nil {
			return fmt.Errorf("build feed %s: %w", file, err)
		}
		if err := writeFile(outDir, path.Join("feed", file), feed); err != nil {
			return err
		}
	}
	return nil
}

func hashJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return domainbuild.HashBytes(raw), nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func writeFile(root, rel string, data []byte) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}
