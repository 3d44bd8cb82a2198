package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerr "pagerouter/internal/domain/errors"
)

func validConfig() Config {
	cfg := Default()
	cfg.Site.BaseURL = "https://example.org"
	return cfg
}

func TestDefault_NeedsBaseURL(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerr.ErrInvalid)
	assert.Contains(t, err.Error(), "site.base_url")

	require.NoError(t, validConfig().Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Site.BasePath = "docs/"
	cfg.Build.Mode = "staging"
	cfg.Build.Cache = "redis"
	cfg.Build.Workers = -1
	cfg.Routes.Virtual = map[string]string{"/blog": "blog"}
	cfg.Routes.Ignored = []IgnoreRule{{Exact: "a", Prefix: "b"}, {Pattern: "("}}
	cfg.Redirects.Internal = []Redirect{{Source: "learn", Destination: "/about"}}

	err := cfg.Validate()
	var ve domainerr.ValidationError
	require.True(t, errors.As(err, &ve))

	fields := make(map[string]int)
	for _, f := range ve.Fields() {
		fields[f]++
	}
	assert.Equal(t, 2, fields["site.base_path"])
	assert.Equal(t, 1, fields["build.mode"])
	assert.Equal(t, 1, fields["build.cache"])
	assert.Equal(t, 1, fields["build.workers"])
	assert.Equal(t, 1, fields["routes.virtual"])
	assert.Equal(t, 2, fields["routes.ignored"])
	assert.Equal(t, 1, fields["redirects"])
}

func TestValidate_PersistentNeedsIndexPath(t *testing.T) {
	cfg := validConfig()
	cfg.Build.Cache = CachePersistent
	cfg.Build.IndexPath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build.index_path")
}

func TestCacheStrategy(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, CacheMemoizing, cfg.CacheStrategy())

	cfg.Build.Cache = CachePersistent
	assert.Equal(t, CachePersistent, cfg.CacheStrategy())

	cfg.Build.Mode = ModeDevelopment
	assert.Equal(t, CachePassthrough, cfg.CacheStrategy())
	assert.True(t, cfg.IsDevelopment())
}

func TestSiteConfig_URLHelpers(t *testing.T) {
	s := SiteConfig{BaseURL: "https://example.org/", BasePath: "/docs", RSSFeeds: Default().Site.RSSFeeds}
	assert.Equal(t, "https://example.org/docs", s.BaseURLAndPath())

	file, ok := s.FeedFile("release")
	assert.True(t, ok)
	assert.Equal(t, "releases.xml", file)

	_, ok = s.FeedFile("events")
	assert.False(t, ok)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBaseURL:  "https://staging.example.org",
		EnvBasePath: "/preview",
		EnvMode:     "DEVELOPMENT",
		EnvAddr:     ":9000",
	}
	cfg := validConfig()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "https://staging.example.org", cfg.Site.BaseURL)
	assert.Equal(t, "/preview", cfg.Site.BasePath)
	assert.Equal(t, ModeDevelopment, cfg.Build.Mode)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
site:
  title: Example
  base_url: https://example.org
routes:
  virtual:
    "": home
    blog: blog
redirects:
  external:
    - source: /old/*
      destination: https://old.example.org/*
serve:
  revalidate: 10m
`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Example", cfg.Site.Title)
	assert.Equal(t, "home", cfg.Routes.Virtual[""])
	assert.Len(t, cfg.Redirects.External, 1)
	assert.Equal(t, 10*time.Minute, cfg.Serve.Revalidate)

	// untouched sections keep their defaults
	assert.Equal(t, "pages", cfg.Build.PagesDir)
	assert.Equal(t, ModeProduction, cfg.Build.Mode)
	assert.Len(t, cfg.Site.RSSFeeds, 3)
	assert.False(t, cfg.Build.Now.IsZero())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	p := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(p, []byte("site:\n  title: Example\n"), 0o644))
	_, err = Load(p)
	require.ErrorIs(t, err, domainerr.ErrInvalid)
}
