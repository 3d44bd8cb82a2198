package ingest

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"pagerouter/internal/domain/content"
)

type Warning struct {
	Path string
	Msg  string
}

// PathIndex maps normalized pathnames to content filenames. It is built once
// and only read afterwards.
type PathIndex struct {
	root    string
	entries map[string]string
}

// BuildPathIndex scans root and maps every content file to its pathname.
// When a file and a directory index normalize to the same pathname the
// directory form wins.
func BuildPathIndex(root string) (*PathIndex, []Warning, error) {
	files, err := DiscoverSource(root)
	if err != nil {
		return nil, nil, err
	}

	idx := &PathIndex{root: root, entries: make(map[string]string, len(files))}
	var warns []Warning
	for _, f := range files {
		pathname := NormalizePathname(f.Path)
		prev, exists := idx.entries[pathname]
		if !exists {
			idx.entries[pathname] = f.Path
			continue
		}
		switch {
		case isIndexFile(f.Path) && !isIndexFile(prev):
			idx.entries[pathname] = f.Path
		case isIndexFile(prev) && !isIndexFile(f.Path):
		default:
			warns = append(warns, Warning{
				Path: f.Path,
				Msg:  "pathname /" + pathname + " already served by " + prev + ", skipped",
			})
		}
	}
	return idx, warns, nil
}

// NewPathIndex wraps an existing pathname to filename mapping.
func NewPathIndex(root string, entries map[string]string) *PathIndex {
	cp := make(map[string]string, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &PathIndex{root: root, entries: cp}
}

func (p *PathIndex) Root() string { return p.root }

func (p *PathIndex) Len() int { return len(p.entries) }

func (p *PathIndex) Filename(pathname string) (string, bool) {
	f, ok := p.entries[pathname]
	return f, ok
}

// Pathnames returns every indexed pathname in lexical order.
func (p *PathIndex) Pathnames() []string {
	out := make([]string, 0, len(p.entries))
	for k := range p.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type result struct {
	Post  content.Post
	Warns []Warning
	Skip  bool
	Err   error
}

// ScanPosts reads the front matter of every post pathname in the index and
// returns the posts newest first. Files with broken front matter are
// skipped with a warning.
func ScanPosts(idx *PathIndex) ([]content.Post, []Warning, error) {
	var jobs []string
	for _, p := range idx.Pathnames() {
		if strings.HasPrefix(p, "posts/") {
			jobs = append(jobs, p)
		}
	}

	workers := runtime.GOMAXPROCS(0)
	in := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pathname := range in {
				filename, _ := idx.Filename(pathname)
				raw, err := os.ReadFile(filepath.Join(idx.root, filepath.FromSlash(filename)))
				if err != nil {
					results <- result{Err: err}
					continue
				}
				fm, _, err := ParseFrontMatter(raw)
				if err != nil {
					results <- result{
						Warns: []Warning{{Path: filename, Msg: "failed to parse front matter: " + err.Error()}},
						Skip:  true,
					}
					continue
				}
				var warns []Warning
				date := ParseTime(fm.Date)
				if date.IsZero() {
					warns = append(warns, Warning{Path: filename, Msg: "post has no parseable date"})
				}
				if strings.TrimSpace(fm.Title) == "" {
					warns = append(warns, Warning{Path: filename, Msg: "title is empty"})
				}
				results <- result{
					Post: content.Post{
						Pathname: pathname,
						Title:    strings.TrimSpace(fm.Title),
						Category: strings.TrimSpace(fm.Category),
						Authors:  fm.AuthorList(),
						Date:     date,
						Excerpt:  fm.Description,
					},
					Warns: warns,
				}
			}
		}()
	}

	go func() {
		for _, j := range jobs {
			in <- j
		}
		close(in)
		wg.Wait()
		close(results)
	}()

	var out []content.Post
	var warns []Warning
	var firstErr error
	for r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		warns = append(warns, r.Warns...)
		if r.Skip {
			continue
		}
		out = append(out, r.Post)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Pathname < out[j].Pathname
	})
	sort.SliceStable(warns, func(i, j int) bool { return warns[i].Path < warns[j].Path })
	return out, warns, nil
}
