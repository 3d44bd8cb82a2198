package serve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagerouter/internal/domain/config"
	"pagerouter/internal/metrics"
)

func writeFile(t *testing.T, p, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	pages := t.TempDir()
	writeFile(t, filepath.Join(pages, "about", "index.md"), "---\ntitle: About Us\n---\nWe build things.\n")
	writeFile(t, filepath.Join(pages, "posts", "node-20.md"),
		"---\ntitle: Node v20\ncategory: release\ndate: 2024-05-01\nlayout: post\n---\nReleased.\n")
	writeFile(t, filepath.Join(pages, "broken.md"), "---\ntitle: [oops\n---\nbody\n")

	cfg := config.Default()
	cfg.Site.Title = "Example"
	cfg.Site.BaseURL = "https://example.org"
	cfg.Build.PagesDir = pages
	cfg.Routes.Virtual = map[string]string{"": "home", "blog/release": "blog"}
	cfg.Redirects = config.RedirectsConfig{
		External: []config.Redirect{{Source: "/old-blog/*", Destination: "https://blog.example.org/*"}},
		Internal: []config.Redirect{{Source: "/learn", Destination: "/about"}},
	}
	return cfg
}

func newServer(t *testing.T, cfg config.Config, opt ...func(*Options)) *Server {
	t.Helper()
	o := Options{Config: cfg}
	for _, f := range opt {
		f(&o)
	}
	s, err := New(o)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Pages(t *testing.T) {
	h := newServer(t, testConfig(t)).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="hero"`)

	rec = get(t, h, "/about")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<title>Example — About Us</title>")

	rec = get(t, h, "/about/")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/posts/node-20")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Released.")

	rec = get(t, h, "/blog/release")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="https://example.org/feed/releases.xml"`)
}

func TestServer_NotFoundAndError(t *testing.T) {
	h := newServer(t, testConfig(t)).Handler()

	rec := get(t, h, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/nope")

	rec = get(t, h, "/broken")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>500</h1>")
	assert.NotContains(t, rec.Body.String(), "oops")
}

func TestServer_SiteDocuments(t *testing.T) {
	h := newServer(t, testConfig(t)).Handler()

	rec := get(t, h, "/sitemap.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Body.String(), "<loc>https://example.org/about</loc>")

	rec = get(t, h, "/robots.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://example.org/sitemap.xml")

	rec = get(t, h, "/manifest.webmanifest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name": "Example"`)

	rec = get(t, h, "/feed/releases.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Node v20</title>")

	rec = get(t, h, "/feed/nope.xml")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Redirects(t *testing.T) {
	h := newServer(t, testConfig(t)).Handler()

	rec := get(t, h, "/old-blog/2020/hello")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://blog.example.org/2020/hello", rec.Header().Get("Location"))

	rec = get(t, h, "/learn")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Example — About Us")
}

func TestMatchRedirect(t *testing.T) {
	cases := []struct {
		rule config.Redirect
		path string
		want string
		ok   bool
	}{
		{config.Redirect{Source: "/a", Destination: "/b"}, "/a", "/b", true},
		{config.Redirect{Source: "/a", Destination: "/b"}, "/a/", "/b", true},
		{config.Redirect{Source: "/a", Destination: "/b"}, "/ab", "", false},
		{config.Redirect{Source: "/docs/*", Destination: "/learn/*"}, "/docs/x/y", "/learn/x/y", true},
		{config.Redirect{Source: "/docs/*", Destination: "/learn/*"}, "/docs", "/learn", true},
		{config.Redirect{Source: "/docs/*", Destination: "/learn"}, "/docs/x", "/learn", true},
		{config.Redirect{Source: "/docs/*", Destination: "/learn/*"}, "/docsy", "", false},
	}
	for _, tc := range cases {
		got, ok := matchRedirect(tc.rule, tc.path)
		assert.Equal(t, tc.ok, ok, "%s %s", tc.rule.Source, tc.path)
		assert.Equal(t, tc.want, got, "%s %s", tc.rule.Source, tc.path)
	}
}

func TestServer_BasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Site.BasePath = "/docs"
	h := newServer(t, cfg).Handler()

	rec := get(t, h, "/docs/about")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<link rel="canonical" href="https://example.org/docs/about">`)

	rec = get(t, h, "/docs")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/about")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	pr := metrics.NewPrometheusRecorder(prom.NewRegistry())
	h := newServer(t, testConfig(t), func(o *Options) {
		o.Recorder = pr
		o.MetricsHandler = pr.Handler()
	}).Handler()

	get(t, h, "/about")
	get(t, h, "/nope")

	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pagerouter_page_outcomes_total{outcome="file"} 1`)
	assert.Contains(t, rec.Body.String(), `pagerouter_page_outcomes_total{outcome="not_found"} 1`)
}

func TestServer_RebuildSwapsSite(t *testing.T) {
	cfg := testConfig(t)
	s := newServer(t, cfg)
	h := s.Handler()
	before := s.Site()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/new-page").Code)

	writeFile(t, filepath.Join(cfg.Build.PagesDir, "new-page.md"), "---\ntitle: New\n---\nFresh.\n")
	require.NoError(t, s.Rebuild(context.Background()))
	assert.NotSame(t, before, s.Site())
	assert.Equal(t, http.StatusOK, get(t, h, "/new-page").Code)

	// a failed rebuild keeps serving the previous site
	current := s.Site()
	require.NoError(t, os.RemoveAll(cfg.Build.PagesDir))
	require.Error(t, s.Rebuild(context.Background()))
	assert.Same(t, current, s.Site())
}

func TestServer_DevelopmentReloadEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Build.Mode = config.ModeDevelopment
	s := newServer(t, cfg)

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	require.NoError(t, s.Rebuild(context.Background()))
	assert.Equal(t, "reload", <-ch)
}
