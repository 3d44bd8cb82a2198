package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagerouter/internal/cache"
	"pagerouter/internal/domain/config"
	"pagerouter/internal/domain/content"
	"pagerouter/internal/ingest"
)

func writeFile(t *testing.T, p, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func setup(t *testing.T, strategy config.CacheStrategy) (string, string, *Resolver) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "pages")
	locales := filepath.Join(base, "locales")
	writeFile(t, filepath.Join(root, "about", "index.md"), "# About")
	writeFile(t, filepath.Join(root, "guide.md"), "# Guide")
	writeFile(t, filepath.Join(locales, "fr", "about", "index.md"), "# A propos")

	idx, _, err := ingest.BuildPathIndex(root)
	require.NoError(t, err)

	r := New(idx, Options{
		Root:          root,
		LocalesDir:    locales,
		DefaultLocale: "en",
		Cache:         cache.New[content.Source](strategy, "markdown", nil, nil),
	})
	return root, locales, r
}

func TestResolve_FoundAndMissing(t *testing.T) {
	_, _, r := setup(t, config.CacheMemoizing)
	ctx := context.Background()

	src, err := r.Resolve(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, content.Source{Text: "# About", Filename: "about/index.md"}, src)

	src, err = r.Resolve(ctx, "/about/")
	require.NoError(t, err)
	assert.Equal(t, "about/index.md", src.Filename)

	src, err = r.Resolve(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Equal(t, content.Source{}, src)
	assert.False(t, src.Found())
}

func TestResolve_ProductionServesCachedText(t *testing.T) {
	root, _, r := setup(t, config.CacheMemoizing)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "guide")
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "guide.md"), "# Changed")
	second, err := r.Resolve(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_DevelopmentReadsFresh(t *testing.T) {
	root, _, r := setup(t, config.CachePassthrough)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "guide")
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "guide.md"), "# Changed")
	second, err := r.Resolve(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, "# Changed", second.Text)
}

func TestResolveLocale_FallsBackOnceWithoutRecursion(t *testing.T) {
	_, locales, r := setup(t, config.CacheMemoizing)
	ctx := context.Background()

	src, err := r.ResolveLocale(ctx, "fr", "about")
	require.NoError(t, err)
	assert.Equal(t, "# A propos", src.Text)

	src, err = r.ResolveLocale(ctx, "fr", "guide")
	require.NoError(t, err)
	assert.Equal(t, "# Guide", src.Text)

	// the fallback is cached under the localized key
	writeFile(t, filepath.Join(locales, "fr", "guide.md"), "# Guide FR")
	src, err = r.ResolveLocale(ctx, "fr", "guide")
	require.NoError(t, err)
	assert.Equal(t, "# Guide", src.Text)
}

func TestResolve_CanceledContextCachesNothing(t *testing.T) {
	_, _, r := setup(t, config.CacheMemoizing)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, "guide")
	require.ErrorIs(t, err, context.Canceled)

	src, err := r.Resolve(context.Background(), "guide")
	require.NoError(t, err)
	assert.Equal(t, "# Guide", src.Text)
}
