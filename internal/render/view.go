package render

import (
	"time"

	"pagerouter/internal/domain/config"
	"pagerouter/internal/domain/content"
	"pagerouter/internal/domain/site"
	"pagerouter/internal/meta"
)

// PageView is the data handed to a page layout. Document is nil for
// virtual routes.
type PageView struct {
	Site      config.SiteConfig
	Meta      meta.Metadata
	Route     site.Route
	Document  *content.Document
	Posts     []content.Post
	Category  string
	Generated time.Time
	// LiveReload adds the development reload script.
	LiveReload bool
}

type NotFoundView struct {
	Site       config.SiteConfig
	Meta       meta.Metadata
	Path       string
	LiveReload bool
}

type ErrorView struct {
	Site       config.SiteConfig
	Meta       meta.Metadata
	RequestID  string
	LiveReload bool
}
