package scrape

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtractToolLinks(t *testing.T) {
	index := `<html><body>
		<a href="https://www.kali.org/tools/nmap/">nmap</a>
		<a href="/tools/sqlmap/">sqlmap</a>
		<a href="/tools/sqlmap/#sqlmap-extra">dup with fragment</a>
		<a href="/tools/">index itself</a>
		<a href="/tools/nmap/subdir/">too deep</a>
		<a href="/docs/policy/">unrelated</a>
		<a href="/tools/UPPER/">bad name</a>
		<a href="https://www.kali.org/tools/nmap/">dup absolute</a>
	</body></html>`

	set, err := ExtractToolLinks(strings.NewReader(index))
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"/tools/nmap/", "/tools/sqlmap/"}, set.Paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 4, set.Discarded)
}

func TestCanonicalToolPath(t *testing.T) {
	cases := []struct {
		href  string
		want  string
		valid bool
	}{
		{"https://www.kali.org/tools/nmap/", "/tools/nmap/", true},
		{"/tools/nmap/", "/tools/nmap/", true},
		{"/tools/nmap", "/tools/nmap/", true},
		{"/tools/nmap/#nmap-common", "/tools/nmap/", true},
		{"/tools/", "", false},
		{"/tools/a/b/", "", false},
		{"/other/nmap/", "", false},
		{"relative/tools/nmap/", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, valid := CanonicalToolPath(tc.href)
		require.Equal(t, tc.valid, valid, tc.href)
		require.Equal(t, tc.want, got, tc.href)
	}
}

func TestToolNameFromPath(t *testing.T) {
	require.Equal(t, "nmap", ToolNameFromPath("/tools/nmap/"))
	require.Equal(t, "", ToolNameFromPath("/nope/"))
}
