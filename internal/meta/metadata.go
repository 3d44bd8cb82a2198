// Package meta derives the head metadata of a page from the site
// configuration, the page's front matter and its pathname.
package meta

import (
	"regexp"
	"sort"
	"strings"

	"pagerouter/internal/domain/config"
	"pagerouter/internal/domain/content"
)

// TitleSeparator joins the site title and the page title.
const TitleSeparator = " — "

const (
	// XDefault is the alternate language key of the default locale URL.
	XDefault = "x-default"
	// DefaultFeedFile is the feed every page without a category feed links.
	DefaultFeedFile = "posts.xml"
	FeedType        = "application/rss+xml"
)

var categoryFeed = regexp.MustCompile(`^blog/(release|vulnerability)(/|$)`)

type Alternate struct {
	Hreflang string
	URL      string
}

type Twitter struct {
	Card  string
	Site  string
	Title string
}

type OpenGraph struct {
	Title       string
	Description string
	URL         string
	Image       string
	Type        string
}

// Metadata is everything a page renders into its <head>.
type Metadata struct {
	Title       string
	Description string
	Canonical   string
	// Languages holds one alternate per configured locale plus x-default,
	// sorted by hreflang.
	Languages []Alternate
	Feed      string
	FeedTitle string
	Image     string
	Twitter   Twitter
	OpenGraph OpenGraph
}

// Language returns the alternate URL for hreflang.
func (m Metadata) Language(hreflang string) (string, bool) {
	for _, a := range m.Languages {
		if a.Hreflang == hreflang {
			return a.URL, true
		}
	}
	return "", false
}

// Synthesize builds the metadata of pathname in the default locale.
func Synthesize(site config.SiteConfig, fm content.FrontMatter, pathname string) Metadata {
	return SynthesizeLocale(site, fm, pathname, site.DefaultLocale)
}

// SynthesizeLocale builds the metadata of pathname as served in locale. It
// is a pure function of its arguments.
func SynthesizeLocale(site config.SiteConfig, fm content.FrontMatter, pathname, locale string) Metadata {
	pathname = strings.Trim(pathname, "/")

	m := Metadata{
		Title:       Title(site, fm),
		Description: site.Description,
		Image:       site.Image,
		Canonical:   URLFor(site, locale, pathname),
	}
	if d := strings.TrimSpace(fm.Description); d != "" {
		m.Description = d
	}
	if img := strings.TrimSpace(fm.HeroImage); img != "" {
		m.Image = img
	}

	m.Languages = append(m.Languages, Alternate{Hreflang: XDefault, URL: URLFor(site, site.DefaultLocale, pathname)})
	for _, l := range locales(site) {
		m.Languages = append(m.Languages, Alternate{Hreflang: l, URL: URLFor(site, l, pathname)})
	}
	sort.Slice(m.Languages, func(i, j int) bool { return m.Languages[i].Hreflang < m.Languages[j].Hreflang })

	feedFile, feedTitle := feedFor(site, pathname, strings.TrimSpace(fm.Category))
	m.Feed = URLFor(site, site.DefaultLocale, "feed/"+feedFile)
	m.FeedTitle = feedTitle

	m.Twitter = Twitter{Card: "summary_large_image", Site: site.TwitterSite, Title: m.Title}
	ogType := "website"
	if strings.HasPrefix(pathname, "posts/") {
		ogType = "article"
	}
	m.OpenGraph = OpenGraph{
		Title:       m.Title,
		Description: m.Description,
		URL:         m.Canonical,
		Image:       m.Image,
		Type:        ogType,
	}
	return m
}

// Title joins the site title and the front matter title, or returns the
// site title alone when the page declares none.
func Title(site config.SiteConfig, fm content.FrontMatter) string {
	t := strings.TrimSpace(fm.Title)
	if t == "" {
		return site.Title
	}
	return site.Title + TitleSeparator + t
}

// URLFor returns the absolute URL of pathname. Non default locales get a
// leading locale segment.
func URLFor(site config.SiteConfig, locale, pathname string) string {
	var b strings.Builder
	b.WriteString(site.BaseURLAndPath())
	b.WriteByte('/')
	if locale != "" && locale != site.DefaultLocale {
		b.WriteString(locale)
		if pathname != "" {
			b.WriteByte('/')
		}
	}
	b.WriteString(pathname)
	return b.String()
}

func locales(site config.SiteConfig) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range append([]string{site.DefaultLocale}, site.Locales...) {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// FeedCategory reports the category whose dedicated feed pathname links.
func FeedCategory(pathname string) (string, bool) {
	m := categoryFeed.FindStringSubmatch(pathname)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// feedFor picks the feed linked from pathname. A blog listing pathname
// decides first, then the post category; anything else links the main feed.
func feedFor(site config.SiteConfig, pathname, category string) (file, title string) {
	if c, ok := FeedCategory(pathname); ok {
		category = c
	}
	if category != "" {
		for _, f := range site.RSSFeeds {
			if f.Category == category {
				return f.File, f.Title
			}
		}
	}
	for _, f := range site.RSSFeeds {
		if f.File == DefaultFeedFile {
			return f.File, f.Title
		}
	}
	return DefaultFeedFile, site.Title
}
