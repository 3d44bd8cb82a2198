package config

import (
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domainerr "pagerouter/internal/domain/errors"
)

type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Build     BuildConfig     `yaml:"build"`
	Routes    RoutesConfig    `yaml:"routes"`
	Redirects RedirectsConfig `yaml:"redirects"`
	Serve     ServeConfig     `yaml:"serve"`
}

type SiteConfig struct {
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	BaseURL       string   `yaml:"base_url"`
	BasePath      string   `yaml:"base_path"`
	DefaultLocale string   `yaml:"default_locale"`
	Locales       []string `yaml:"locales"`
	Image         string   `yaml:"image"`
	TwitterSite   string   `yaml:"twitter_site"`

	RSSFeeds             []RSSFeed      `yaml:"rss_feeds"`
	ExternalSitemapLinks []string       `yaml:"external_sitemap_links"`
	Robots               RobotsConfig   `yaml:"robots"`
	Manifest             ManifestConfig `yaml:"manifest"`
}

type RSSFeed struct {
	Category string `yaml:"category"`
	File     string `yaml:"file"`
	Title    string `yaml:"title"`
}

type RobotsConfig struct {
	Host     string   `yaml:"host"`
	Allow    []string `yaml:"allow"`
	Disallow []string `yaml:"disallow"`
}

type ManifestConfig struct {
	Name            string `yaml:"name"`
	ShortName       string `yaml:"short_name"`
	ThemeColor      string `yaml:"theme_color"`
	BackgroundColor string `yaml:"background_color"`
}

type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

type CacheStrategy string

const (
	CacheMemoizing   CacheStrategy = "memoizing"
	CachePassthrough CacheStrategy = "passthrough"
	CachePersistent  CacheStrategy = "persistent"
)

type BuildConfig struct {
	PagesDir   string        `yaml:"pages_dir"`
	LocalesDir string        `yaml:"locales_dir"`
	PublicDir  string        `yaml:"public_dir"`
	IndexPath  string        `yaml:"index_path"`
	Mode       Mode          `yaml:"mode"`
	Cache      CacheStrategy `yaml:"cache"`
	Workers    int           `yaml:"workers"`
	Now        time.Time     `yaml:"-"`
}

type RoutesConfig struct {
	// Virtual maps a pathname to the layout rendered for it. These routes have
	// no backing file.
	Virtual map[string]string `yaml:"virtual"`
	Ignored []IgnoreRule      `yaml:"ignored"`
}

// IgnoreRule matches pathnames that stay resolvable but are left out of
// route listings. Exactly one field should be set.
type IgnoreRule struct {
	Exact   string `yaml:"exact"`
	Prefix  string `yaml:"prefix"`
	Pattern string `yaml:"pattern"`
}

type RedirectsConfig struct {
	External []Redirect `yaml:"external"`
	Internal []Redirect `yaml:"internal"`
}

type Redirect struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
}

type ServeConfig struct {
	Addr       string        `yaml:"addr"`
	Revalidate time.Duration `yaml:"revalidate"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:         "Website",
			DefaultLocale: "en",
			RSSFeeds: []RSSFeed{
				{Category: "all", File: "posts.xml", Title: "Blog"},
				{Category: "release", File: "releases.xml", Title: "Releases"},
				{Category: "vulnerability", File: "vulnerability.xml", Title: "Vulnerabilities"},
			},
			Robots: RobotsConfig{
				Allow:    []string{"/"},
				Disallow: []string{"/api", "/_next/", "/_app/", "/_error/", "/*.js$", "/*.webmanifest$"},
			},
			Manifest: ManifestConfig{
				ThemeColor:      "#ffffff",
				BackgroundColor: "#ffffff",
			},
		},
		Build: BuildConfig{
			PagesDir:  "pages",
			PublicDir: "public",
			IndexPath: ".pagerouter/index.db",
			Mode:      ModeProduction,
			Now:       time.Now(),
		},
		Serve: ServeConfig{
			Addr:       ":8080",
			Revalidate: 5 * time.Minute,
		},
	}
}

// CacheStrategy resolves the strategy actually used for the resolver and
// compiler caches. Development always reads through so edits show up live.
func (c Config) CacheStrategy() CacheStrategy {
	if c.Build.Mode == ModeDevelopment {
		return CachePassthrough
	}
	if c.Build.Cache == "" {
		return CacheMemoizing
	}
	return c.Build.Cache
}

func (c Config) IsDevelopment() bool {
	return c.Build.Mode == ModeDevelopment
}

// BaseURLAndPath is the prefix every absolute site URL starts with.
func (c SiteConfig) BaseURLAndPath() string {
	return strings.TrimRight(c.BaseURL, "/") + c.BasePath
}

// FeedFile returns the feed file configured for category.
func (c SiteConfig) FeedFile(category string) (string, bool) {
	for _, f := range c.RSSFeeds {
		if f.Category == category {
			return f.File, true
		}
	}
	return "", false
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}

	if strings.TrimSpace(c.Site.BaseURL) == "" {
		ve.Add("site.base_url", "must not be empty")
	} else if !isValidAbsURL(c.Site.BaseURL) {
		ve.Add("site.base_url", "must be a valid absolute URL")
	}

	if bp := strings.TrimSpace(c.Site.BasePath); bp != "" {
		if !strings.HasPrefix(bp, "/") {
			ve.Add("site.base_path", "must start with '/'")
		}
		if strings.HasSuffix(bp, "/") {
			ve.Add("site.base_path", "must not end with '/'")
		}
	}

	if strings.TrimSpace(c.Site.DefaultLocale) == "" {
		ve.Add("site.default_locale", "must not be empty")
	}

	for i, f := range c.Site.RSSFeeds {
		if strings.TrimSpace(f.Category) == "" || strings.TrimSpace(f.File) == "" {
			ve.Addf("site.rss_feeds", "entry %d needs both category and file", i)
		}
	}

	switch c.Build.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		ve.Add("build.mode", "must be 'development' or 'production'")
	}

	switch c.Build.Cache {
	case "", CacheMemoizing, CachePassthrough, CachePersistent:
	default:
		ve.Add("build.cache", "must be 'memoizing', 'passthrough' or 'persistent'")
	}

	if strings.TrimSpace(c.Build.PagesDir) == "" {
		ve.Add("build.pages_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.PublicDir) == "" {
		ve.Add("build.public_dir", "must not be empty")
	}
	if c.Build.Cache == CachePersistent && strings.TrimSpace(c.Build.IndexPath) == "" {
		ve.Add("build.index_path", "required when build.cache is 'persistent'")
	}
	if c.Build.Workers < 0 {
		ve.Add("build.workers", "must not be negative")
	}

	for pathname, layout := range c.Routes.Virtual {
		if strings.HasPrefix(pathname, "/") || strings.HasSuffix(pathname, "/") {
			ve.Addf("routes.virtual", "pathname %q must not start or end with '/'", pathname)
		}
		if strings.TrimSpace(layout) == "" {
			ve.Addf("routes.virtual", "pathname %q has no layout", pathname)
		}
	}

	for i, r := range c.Routes.Ignored {
		set := 0
		for _, v := range []string{r.Exact, r.Prefix, r.Pattern} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			ve.Addf("routes.ignored", "rule %d must set exactly one of exact, prefix, pattern", i)
			continue
		}
		if r.Pattern != "" {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				ve.Addf("routes.ignored", "rule %d: %v", i, err)
			}
		}
	}

	for _, group := range [][]Redirect{c.Redirects.External, c.Redirects.Internal} {
		for _, r := range group {
			if !strings.HasPrefix(r.Source, "/") || r.Destination == "" {
				ve.Addf("redirects", "invalid redirect %q -> %q", r.Source, r.Destination)
			}
		}
	}

	if c.Serve.Revalidate < 0 {
		ve.Add("serve.revalidate", "must not be negative")
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Environment variables that override the file configuration.
const (
	EnvBaseURL  = "PAGEROUTER_BASE_URL"
	EnvBasePath = "PAGEROUTER_BASE_PATH"
	EnvMode     = "PAGEROUTER_MODE"
	EnvAddr     = "PAGEROUTER_ADDR"
)

// ApplyEnv overlays environment overrides using lookup (os.LookupEnv in
// production, a map in tests).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.Site.BaseURL = v
	}
	if v, ok := lookup(EnvBasePath); ok {
		c.Site.BasePath = v
	}
	if v, ok := lookup(EnvMode); ok && v != "" {
		c.Build.Mode = Mode(strings.ToLower(v))
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Serve.Addr = v
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return decode(cfg, data)
}

func LoadOrDefault(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv(os.LookupEnv)
			if err := cfg.Validate(); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return cfg, err
	}
	return decode(cfg, data)
}

func decode(cfg Config, data []byte) (Config, error) {
	// fields present in the file override Default, the rest keep their defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	if cfg.Build.Now.IsZero() {
		cfg.Build.Now = time.Now()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
