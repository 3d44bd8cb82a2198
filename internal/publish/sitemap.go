// Package publish renders the site wide documents that sit next to the
// pages: sitemap, robots rules, web manifest and RSS feeds.
package publish

import (
	"bytes"
	"encoding/xml"
	"time"

	"pagerouter/internal/app"
	"pagerouter/internal/meta"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
}

// Sitemap lists every route of s plus the configured external links.
func Sitemap(s *app.Site) ([]byte, error) {
	cfg := s.Config().Site
	lastmod := s.Built().UTC().Format(time.RFC3339)

	set := urlset{Xmlns: sitemapNS}
	for _, route := range s.Routes() {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        meta.URLFor(cfg, cfg.DefaultLocale, route),
			LastMod:    lastmod,
			ChangeFreq: "always",
		})
	}
	for _, link := range cfg.ExternalSitemapLinks {
		set.URLs = append(set.URLs, sitemapURL{Loc: link, LastMod: lastmod, ChangeFreq: "always"})
	}
	return marshalXML(set)
}

func marshalXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
