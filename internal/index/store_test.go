package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(OpenOptions{Path: filepath.Join(t.TempDir(), "nested", "index.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(OpenOptions{})
	require.Error(t, err)
}

func TestDocuments_LoadStore(t *testing.T) {
	st := openTemp(t)
	docs := st.Documents()

	_, ok, err := docs.Load("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, docs.Store("k", []byte(`{"a":1}`)))
	v, ok, err := docs.Load("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(v))
}

func TestFingerprints_RebuildReplaces(t *testing.T) {
	st := openTemp(t)

	require.NoError(t, st.RebuildFingerprints(map[string]string{"": "h0", "about": "h1", "gone": "h2"}))
	fps, err := st.Fingerprints()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"": "h0", "about": "h1", "gone": "h2"}, fps)

	require.NoError(t, st.RebuildFingerprints(map[string]string{"about": "h3"}))
	fps, err = st.Fingerprints()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"about": "h3"}, fps)
}

func TestLastBuild(t *testing.T) {
	st := openTemp(t)

	_, err := st.LastBuild()
	require.ErrorIs(t, err, ErrNotFound)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.RecordBuild(BuildRecord{ID: "b1", Started: now, Finished: now, Routes: 4, Written: 3, Skipped: 1}))

	rec, err := st.LastBuild()
	require.NoError(t, err)
	assert.Equal(t, "b1", rec.ID)
	assert.Equal(t, 3, rec.Written)
	assert.True(t, rec.Started.Equal(now))
}
