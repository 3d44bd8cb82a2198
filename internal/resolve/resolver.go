package resolve

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"pagerouter/internal/cache"
	"pagerouter/internal/domain/content"
	"pagerouter/internal/ingest"
	"pagerouter/internal/logfields"
)

// Resolver reads the source text behind a pathname. Lookups go through the
// configured cache, so in production each file is read at most once.
type Resolver struct {
	files         *ingest.PathIndex
	root          string
	localesDir    string
	defaultLocale string
	cache         cache.Cache[content.Source]
}

type Options struct {
	// Root is the default-locale content tree.
	Root string
	// LocalesDir holds one content tree per non-default locale. Empty
	// disables localized lookups.
	LocalesDir    string
	DefaultLocale string
	Cache         cache.Cache[content.Source]
}

func New(files *ingest.PathIndex, opt Options) *Resolver {
	c := opt.Cache
	if c == nil {
		c = cache.Passthrough[content.Source]{}
	}
	return &Resolver{
		files:         files,
		root:          opt.Root,
		localesDir:    opt.LocalesDir,
		defaultLocale: opt.DefaultLocale,
		cache:         c,
	}
}

// Resolve returns the default-locale source for pathname. A pathname with
// no file yields a zero Source and no error.
func (r *Resolver) Resolve(ctx context.Context, pathname string) (content.Source, error) {
	return r.ResolveLocale(ctx, r.defaultLocale, pathname)
}

// ResolveLocale prefers the localized file and falls back to the default
// tree once. The fallback is cached under the localized key so a missing
// translation costs a single miss.
func (r *Resolver) ResolveLocale(ctx context.Context, locale, pathname string) (content.Source, error) {
	pathname = ingest.CleanPathname(pathname)
	slog.Debug("resolve", logfields.Pathname(pathname), logfields.Locale(locale))

	filename, ok := r.files.Filename(pathname)
	if !ok {
		return content.Source{}, nil
	}

	return r.cache.Do(locale+":"+pathname, func() (content.Source, error) {
		if err := ctx.Err(); err != nil {
			return content.Source{}, err
		}
		if r.localized(locale) {
			text, err := readFile(filepath.Join(r.localesDir, locale, filepath.FromSlash(filename)))
			if err == nil {
				return content.Source{Text: text, Filename: filename}, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return content.Source{}, err
			}
		}

		text, err := readFile(filepath.Join(r.root, filepath.FromSlash(filename)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// indexed but deleted since the scan
				slog.Warn("indexed file missing", logfields.Pathname(pathname), logfields.Filename(filename))
				return content.Source{}, nil
			}
			return content.Source{}, err
		}
		return content.Source{Text: text, Filename: filename}, nil
	})
}

func (r *Resolver) localized(locale string) bool {
	return r.localesDir != "" && locale != "" && locale != r.defaultLocale
}

func readFile(p string) (string, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
