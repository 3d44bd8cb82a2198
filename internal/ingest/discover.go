package ingest

import (
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type SourceFile struct {
	// Path is relative to the content root and slash separated.
	Path string
	Abs  string
}

func IsContentFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".mdx")
}

func DiscoverSource(root string) ([]SourceFile, error) {
	var out []SourceFile

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !IsContentFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, SourceFile{Path: filepath.ToSlash(rel), Abs: p})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, err
}

var (
	indexSuffix = regexp.MustCompile(`(?i)(^|/)index\.mdx?$`)
	extSuffix   = regexp.MustCompile(`(?i)\.mdx?$`)
)

// NormalizePathname maps a content filename to the URL pathname it serves.
//
//	about/index.md          -> about
//	docs/guide.mdx          -> docs/guide
//	index.md                -> ""
//	blog/index.md           -> posts
//	blog/release/node-20.md -> posts/node-20
func NormalizePathname(filename string) string {
	p := filepath.ToSlash(filename)
	if indexSuffix.MatchString(p) {
		p = indexSuffix.ReplaceAllString(p, "")
	} else {
		p = extSuffix.ReplaceAllString(p, "")
	}
	p = strings.TrimSuffix(p, "/")
	p = CleanPathname(p)

	if p == "blog" || strings.HasPrefix(p, "blog/") {
		slug := p[strings.LastIndex(p, "/")+1:]
		if slug == "blog" {
			return "posts"
		}
		return "posts/" + slug
	}
	return p
}

// CleanPathname normalizes a request or file pathname: no leading or
// trailing slash, no "." or ".." artifacts, root is "".
func CleanPathname(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	return strings.Trim(p, "/")
}

func isIndexFile(filename string) bool {
	return indexSuffix.MatchString(filename)
}
