package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kalitools/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, domain.DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, domain.DefaultIndexPath, cfg.IndexPath)
	require.Equal(t, 200*time.Millisecond, cfg.RequestDelay)
	require.Equal(t, 15*time.Second, cfg.FetchTimeout)
	require.Equal(t, 3, cfg.RetryAttempts)
	require.Equal(t, 30*time.Second, cfg.StateTTL)
	require.Equal(t, 168*time.Hour, cfg.LinkCacheTTL)
	require.Equal(t, domain.MetaPackageRoots, cfg.MetaPackages)
	require.NotEmpty(t, cfg.CatalogPath)
	require.NotEmpty(t, cfg.LinkCachePath)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
baseURL: https://mirror.example.org/
requestDelayMillis: 50
retryAttempts: 5
catalogPath: /var/lib/kalitools/catalog.json
linkCachePath: /var/lib/kalitools/linkcache.db
metaPackages: [kali-linux-large]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://mirror.example.org", cfg.BaseURL, "trailing slash is trimmed")
	require.Equal(t, 50*time.Millisecond, cfg.RequestDelay)
	require.Equal(t, 5, cfg.RetryAttempts)
	require.Equal(t, "/var/lib/kalitools/catalog.json", cfg.CatalogPath)
	require.Equal(t, []string{"kali-linux-large"}, cfg.MetaPackages)
	require.Equal(t, domain.DefaultIndexPath, cfg.IndexPath, "unset keys keep defaults")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := []string{
		"baseURL: ''",
		"indexPath: tools/all-tools/",
		"retryAttempts: 0",
		"fetchTimeoutSeconds: 0",
	}
	for _, body := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := LoadConfig(path)
		require.Error(t, err, body)
	}
}
