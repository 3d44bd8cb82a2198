package site

import (
	"strings"
)

type RouteKind string

const (
	RouteVirtual  RouteKind = "virtual"
	RouteFile     RouteKind = "file"
	RouteNotFound RouteKind = "404"
)

// Route is one addressable page. Layout is only set for virtual routes and
// Filename only for file-backed ones.
type Route struct {
	Kind     RouteKind
	Pathname string
	Layout   string
	Filename string
	OutPath  string
}

func (r Route) Found() bool {
	return r.Kind == RouteVirtual || r.Kind == RouteFile
}

// Segments splits the pathname into URL segments; the root route has none.
func (r Route) Segments() []string {
	if r.Pathname == "" {
		return nil
	}
	return strings.Split(r.Pathname, "/")
}

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	parts = append(parts, "path=/"+r.Pathname)
	if r.Layout != "" {
		parts = append(parts, "layout="+r.Layout)
	}
	if r.Filename != "" {
		parts = append(parts, "file="+r.Filename)
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}
