package publish

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"pagerouter/internal/app"
	domainerr "pagerouter/internal/domain/errors"
	"pagerouter/internal/meta"
	"pagerouter/internal/render"
)

// ExcerptLength bounds item descriptions built from page content.
const ExcerptLength = 280

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Description string  `xml:"description,omitempty"`
	Category    string  `xml:"category,omitempty"`
	Author      string  `xml:"author,omitempty"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// FeedFiles lists the configured feed file names.
func FeedFiles(s *app.Site) []string {
	var out []string
	for _, f := range s.Config().Site.RSSFeeds {
		out = append(out, f.File)
	}
	return out
}

// Feed renders the RSS document stored as feed/<file>. Posts without a
// description get an excerpt of their compiled content.
func Feed(ctx context.Context, s *app.Site, file string) ([]byte, error) {
	cfg := s.Config().Site
	var category, title string
	found := false
	for _, f := range cfg.RSSFeeds {
		if f.File == file {
			category, title, found = f.Category, f.Title, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("feed %s: %w", file, domainerr.ErrNotFound)
	}
	if title == "" {
		title = cfg.Title
	}

	ch := rssChannel{
		Title:         title,
		Link:          meta.URLFor(cfg, cfg.DefaultLocale, ""),
		Description:   cfg.Description,
		Language:      cfg.DefaultLocale,
		LastBuildDate: s.Built().UTC().Format(time.RFC1123Z),
	}
	for _, p := range s.PostsIn(category) {
		link := meta.URLFor(cfg, cfg.DefaultLocale, p.Pathname)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			Description: p.Excerpt,
			Category:    p.Category,
			Author:      strings.Join(p.Authors, ", "),
		}
		if !p.Date.IsZero() {
			item.PubDate = p.Date.UTC().Format(time.RFC1123Z)
		}
		if item.Description == "" {
			page, err := s.Page(ctx, p.Pathname)
			if err != nil {
				return nil, fmt.Errorf("feed %s: %w", file, err)
			}
			if page.Document != nil {
				item.Description = render.Excerpt(string(page.Document.HTML), ExcerptLength)
			}
		}
		ch.Items = append(ch.Items, item)
	}
	return marshalXML(rss{Version: "2.0", Channel: ch})
}
