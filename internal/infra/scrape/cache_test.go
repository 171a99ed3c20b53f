package scrape

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinkCacheRoundTrip(t *testing.T) {
	cache, err := OpenLinkCache(filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	_, ok, err := cache.Get(time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	paths := []string{"/tools/nmap/", "/tools/sqlmap/"}
	require.NoError(t, cache.Put(paths))

	got, ok, err := cache.Get(time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, paths, got)
}

func TestLinkCacheExpiry(t *testing.T) {
	cache, err := OpenLinkCache(filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	require.NoError(t, cache.Put([]string{"/tools/nmap/"}))

	_, ok, err := cache.Get(0)
	require.NoError(t, err)
	require.False(t, ok, "zero ttl must treat any entry as stale")
}

func TestLinkCacheClosed(t *testing.T) {
	cache, err := OpenLinkCache(filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	require.ErrorIs(t, cache.Put(nil), ErrCacheClosed)
	_, _, err = cache.Get(time.Hour)
	require.ErrorIs(t, err, ErrCacheClosed)
}
