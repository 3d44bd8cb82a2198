package app

import (
	"path"

	"pagerouter/internal/domain/site"
	"pagerouter/internal/routing"
)

// RouteBuilder expands listed pathnames into routes with their output
// location in a static export.
type RouteBuilder struct {
	Classifier *routing.Classifier
}

// BuildRoutes returns one route per listed pathname, in pathname order.
func (rb *RouteBuilder) BuildRoutes() []site.Route {
	var routes []site.Route
	for _, p := range rb.Classifier.Routes() {
		routes = append(routes, rb.Route(p))
	}
	return routes
}

func (rb *RouteBuilder) Route(pathname string) site.Route {
	r := rb.Classifier.Lookup(pathname)
	if r.Found() {
		r.OutPath = OutPath(pathname)
	}
	return r
}

// OutPath is the slash separated file a pathname is exported to.
func OutPath(pathname string) string {
	if pathname == "" {
		return "index.html"
	}
	return path.Join(pathname, "index.html")
}
