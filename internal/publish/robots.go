package publish

import (
	"net/url"
	"strings"

	"pagerouter/internal/app"
	"pagerouter/internal/meta"
)

// Robots renders robots.txt. Host defaults to the host of the base URL.
func Robots(s *app.Site) []byte {
	cfg := s.Config().Site
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, a := range cfg.Robots.Allow {
		b.WriteString("Allow: " + a + "\n")
	}
	for _, d := range cfg.Robots.Disallow {
		b.WriteString("Disallow: " + d + "\n")
	}
	b.WriteString("\nSitemap: " + meta.URLFor(cfg, cfg.DefaultLocale, "sitemap.xml") + "\n")

	host := cfg.Robots.Host
	if host == "" {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			host = u.Host
		}
	}
	if host != "" {
		b.WriteString("Host: " + host + "\n")
	}
	return []byte(b.String())
}
