package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/dispatch/internal/index"
	"github.com/JaimeStill/dispatch/internal/ingest"
)

func TestWatched(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"docs/handbook.pdf", true},
		{"notes.md", true},
		{"/tmp/page.HTML", true},
		{".draft.txt", false},
		{"photo.png", false},
		{"archive", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ingest.Watched(tt.path))
		})
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) string {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	a := write("a.txt", "alpha")
	b := write("nested/b.md", "# beta")
	write("nested/c.png", "not text")
	write(".hidden/d.txt", "skipped")
	explicit := write("solo.txt", "solo")

	files, err := ingest.Collect([]string{dir})
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{a, b, explicit}, files)

	files, err = ingest.Collect([]string{explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{explicit}, files)

	_, err = ingest.Collect([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestWatcherSync(t *testing.T) {
	ctx := context.Background()
	store := index.NewMemory()
	w := ingest.NewWatcher(ingest.New(store, nil, discard()), store, 0, discard())

	path := filepath.Join(t.TempDir(), "guide.txt")
	require.NoError(t, os.WriteFile(path, []byte("The first version mentions refunds."), 0o644))

	require.NoError(t, w.Sync(ctx, path))
	require.NoError(t, w.Sync(ctx, path))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Passages, "re-sync replaces passages")

	require.NoError(t, os.WriteFile(path, []byte("The second version covers shipping."), 0o644))
	require.NoError(t, w.Sync(ctx, path))

	got, err := store.Retrieve(ctx, "shipping", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Content, "second version")

	require.NoError(t, os.Remove(path))
	require.NoError(t, w.Sync(ctx, path))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Passages)
}

func TestWatcherWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := index.NewMemory()
	w := ingest.NewWatcher(ingest.New(store, nil, discard()), store, 20*time.Millisecond, discard())
	dir := t.TempDir()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, dir) }()

	passages := func() int {
		stats, err := store.Stats(ctx)
		if err != nil {
			return -1
		}
		return stats.Passages
	}

	// The watch is registered asynchronously; keep rewriting until it is seen.
	path := filepath.Join(dir, "faq.md")
	assert.Eventually(t, func() bool {
		os.WriteFile(path, []byte("# FAQ\n\nReturns are accepted within 30 days."), 0o644)
		return passages() == 1
	}, 5*time.Second, 100*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool { return passages() == 0 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
