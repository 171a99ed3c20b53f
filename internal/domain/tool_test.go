package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestValidPackageName(t *testing.T) {
	valid := []string{"nmap", "burpsuite", "fern-wifi-cracker", "g++", "libssl1.1", "0trace"}
	for _, name := range valid {
		require.True(t, ValidPackageName(name), name)
	}
	invalid := []string{"", "ab", "Nmap", "-nmap", "nmap ", "nm ap", "näp"}
	for _, name := range invalid {
		require.False(t, ValidPackageName(name), name)
	}
}

func TestToolNormalize(t *testing.T) {
	tool := Tool{
		Name:        "  Apache2 ",
		Subpackages: []string{"apache2-bin", "apache2", "Apache2-Dev", "apache2-bin", ""},
	}
	tool.Normalize()

	expect := Tool{
		Name:        "apache2",
		Category:    CategoryUnknown,
		Subpackages: []string{"apache2-bin", "apache2-dev"},
	}
	if diff := cmp.Diff(expect, tool); diff != "" {
		t.Fatalf("tool mismatch (-want +got):\n%s", diff)
	}
}

func TestToolNormalizeEmptySubpackages(t *testing.T) {
	tool := Tool{Name: "nmap"}
	tool.Normalize()
	require.NotNil(t, tool.Subpackages)
	require.Empty(t, tool.Subpackages)
}

func TestToolField(t *testing.T) {
	tool := Tool{Name: "nmap", Category: "recon", Source: SourceScrape}
	require.Equal(t, "nmap", tool.Field("name"))
	require.Equal(t, "recon", tool.Field("Category"))
	require.Equal(t, "scrape", tool.Field("source"))
	require.Equal(t, "", tool.Field("bogus"))
}

func TestCategoryFromTags(t *testing.T) {
	require.Equal(t, "web", CategoryFromTags([]string{"HTTP Crawler"}))
	require.Equal(t, "password", CategoryFromTags([]string{"offline cracking"}))
	require.Equal(t, CategoryUnknown, CategoryFromTags([]string{"miscellaneous"}))
	require.Equal(t, "", CategoryFromTags(nil))
}
