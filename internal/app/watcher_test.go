package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kalitools/internal/domain"
	"kalitools/internal/infra/catalog"
	"kalitools/internal/infra/fsutil"
	"kalitools/internal/infra/notifications"
)

func TestCatalogWatcherReloadsOnExternalEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	store, err := catalog.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Add(domain.Tool{Name: "nmap"}))

	hub := notifications.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := hub.Subscribe(ctx, domain.KindCatalogMerged)

	watcher := NewCatalogWatcher(store, hub, nil)
	go func() { _ = watcher.Run(ctx) }()

	// Give the watcher a moment to register before touching the file.
	time.Sleep(100 * time.Millisecond)

	external := []byte(`[{"name": "hydra", "category": "password", "subpackages": [], "source": "user"}]`)
	require.NoError(t, fsutil.WriteFileAtomic(path, external, fsutil.DefaultFileMode))

	select {
	case ev := <-events:
		require.Equal(t, 1, ev.Count)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload event after external edit")
	}

	_, ok := store.Get("hydra")
	require.True(t, ok)
	_, ok = store.Get("nmap")
	require.False(t, ok, "reload replaces the in-memory view")
}

func TestCatalogWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "catalog.json"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Add(domain.Tool{Name: "nmap"}))

	hub := notifications.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := hub.Subscribe(ctx, domain.KindCatalogMerged)

	watcher := NewCatalogWatcher(store, hub, nil)
	go func() { _ = watcher.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))

	select {
	case <-events:
		t.Fatal("unrelated file must not trigger a reload")
	case <-time.After(500 * time.Millisecond):
	}
	require.Equal(t, 1, store.Len())
}
