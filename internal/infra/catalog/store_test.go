package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"kalitools/internal/domain"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tools.json"), nil)
	require.NoError(t, err)
	return s
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s := tempStore(t)
	require.Zero(t, s.Len())
}

func TestOpenRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Open(path, nil)
	require.Error(t, err)
}

func TestRoundTripPreservesSubpackages(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Add(domain.Tool{
		Name:        "apache2",
		Category:    "web",
		Subpackages: []string{"a-dev", "a-dbg"},
	}))

	reloaded, err := Open(s.Path(), nil)
	require.NoError(t, err)

	got, ok := reloaded.Get("apache2")
	require.True(t, ok)
	require.Equal(t, []string{"a-dev", "a-dbg"}, got.Subpackages)
}

func TestLoadMissingSubpackagesDefaultsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	legacy := `[{"name": "nmap", "category": "recon", "source": "scrape"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s, err := Open(path, nil)
	require.NoError(t, err)

	got, ok := s.Get("nmap")
	require.True(t, ok)
	require.NotNil(t, got.Subpackages)
	require.Empty(t, got.Subpackages)
}

func TestMergePersistsAndRetains(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Merge([]domain.Tool{
		{Name: "legacy-tool", Category: "recon", Source: domain.SourceScrape},
	}, domain.MergeOptions{}))

	require.NoError(t, s.Merge([]domain.Tool{
		{Name: "nmap", Category: "recon", Source: domain.SourceScrape},
	}, domain.MergeOptions{}))

	reloaded, err := Open(s.Path(), nil)
	require.NoError(t, err)
	_, ok := reloaded.Get("legacy-tool")
	require.True(t, ok, "merge without pruning must not drop prior entries")
	_, ok = reloaded.Get("nmap")
	require.True(t, ok)
}

func TestAddValidation(t *testing.T) {
	s := tempStore(t)
	require.Error(t, s.Add(domain.Tool{Name: "NOT-valid"}))
	require.NoError(t, s.Add(domain.Tool{Name: "mytool"}))
	require.Error(t, s.Add(domain.Tool{Name: "mytool"}), "duplicate add must fail")

	got, _ := s.Get("mytool")
	require.Equal(t, domain.SourceUser, got.Source)
}

func TestRemove(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Add(domain.Tool{Name: "mytool"}))
	require.NoError(t, s.Remove("mytool"))
	require.ErrorIs(t, s.Remove("mytool"), domain.ErrToolNotFound)

	reloaded, err := Open(s.Path(), nil)
	require.NoError(t, err)
	require.Zero(t, reloaded.Len())
}

func TestPersistFailureLeavesStateUntouched(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "tools.json"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(domain.Tool{Name: "mytool"}))

	// Make the directory unwritable so the atomic replace cannot create
	// its temp file.
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err = s.Add(domain.Tool{Name: "othertool"})
	require.Error(t, err)

	_, ok := s.Get("othertool")
	require.False(t, ok, "failed persist must not mutate the in-memory view")
	_, ok = s.Get("mytool")
	require.True(t, ok)
}

func TestReload(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Add(domain.Tool{Name: "mytool"}))

	external := `[{"name": "replaced", "category": "web", "subpackages": [], "source": "user"}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(external), 0o644))

	require.NoError(t, s.Reload())
	require.Equal(t, []string{"replaced"}, namesOf(s.List()))
}

func TestListOrderStable(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Merge([]domain.Tool{
		{Name: "zzz", Source: domain.SourceScrape},
		{Name: "aaa", Source: domain.SourceScrape},
	}, domain.MergeOptions{}))

	reloaded, err := Open(s.Path(), nil)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"zzz", "aaa"}, namesOf(reloaded.List())); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func namesOf(tools []domain.Tool) []string {
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		out = append(out, tool.Name)
	}
	return out
}
