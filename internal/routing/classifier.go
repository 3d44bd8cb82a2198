package routing

import (
	"sort"

	"pagerouter/internal/domain/site"
	"pagerouter/internal/ingest"
)

// Classifier decides whether a pathname is a virtual route, a file-backed
// route or nothing at all. It is read only after construction.
type Classifier struct {
	virtual map[string]string
	files   *ingest.PathIndex
	ignore  []Predicate
}

func NewClassifier(virtual map[string]string, files *ingest.PathIndex, ignore []Predicate) *Classifier {
	v := make(map[string]string, len(virtual))
	for k, layout := range virtual {
		v[ingest.CleanPathname(k)] = layout
	}
	if files == nil {
		files = ingest.NewPathIndex("", nil)
	}
	return &Classifier{virtual: v, files: files, ignore: ignore}
}

// Lookup consults the virtual table first; a virtual registration shadows
// any file with the same pathname.
func (c *Classifier) Lookup(pathname string) site.Route {
	if layout, ok := c.virtual[pathname]; ok {
		return site.Route{Kind: site.RouteVirtual, Pathname: pathname, Layout: layout}
	}
	if filename, ok := c.files.Filename(pathname); ok {
		return site.Route{Kind: site.RouteFile, Pathname: pathname, Filename: filename}
	}
	return site.Route{Kind: site.RouteNotFound, Pathname: pathname}
}

func (c *Classifier) Ignored(pathname string) bool {
	for _, p := range c.ignore {
		if p(pathname) {
			return true
		}
	}
	return false
}

// Routes lists every servable pathname: file-backed ones that no ignore
// predicate matches, plus all virtual ones.
func (c *Classifier) Routes() []string {
	seen := make(map[string]struct{}, c.files.Len()+len(c.virtual))
	var out []string
	for _, p := range c.files.Pathnames() {
		if c.Ignored(p) {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for p := range c.virtual {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Files is the underlying path index.
func (c *Classifier) Files() *ingest.PathIndex { return c.files }
