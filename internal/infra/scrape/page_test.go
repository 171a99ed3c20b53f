package scrape

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"kalitools/internal/domain"
)

const apachePage = `<html><body>
	<dl>
		<dt>Package</dt><dd>apache2</dd>
		<dt>Homepage</dt><dd><a href="https://httpd.apache.org/">httpd.apache.org</a></dd>
		<dt>Tags</dt><dd><a href="/tags/web/">Web Servers</a></dd>
	</dl>
	<ul>
		<li><a href="https://www.kali.org/tools/apache2/#apache2-bin">apache2-bin</a></li>
		<li><a href="/tools/apache2/#apache2-dev">apache2-dev</a></li>
		<li><a href="/tools/apache2/#apache2-bin">apache2-bin again</a></li>
		<li><a href="/tools/apache2/#apache2">self reference</a></li>
	</ul>
</body></html>`

func TestParseToolPage(t *testing.T) {
	page, err := ParseToolPage(strings.NewReader(apachePage), "/tools/apache2/")
	require.NoError(t, err)

	expect := ParsedPage{
		Package:     "apache2",
		Category:    "web",
		Homepage:    "https://httpd.apache.org/",
		Subpackages: []string{"apache2-bin", "apache2-dev"},
	}
	if diff := cmp.Diff(expect, page); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestParseToolPageDuplicateAndSelfAnchors(t *testing.T) {
	doc := `<html><body>
		<a href="/tools/x11stuff/#x11stuff-aux">a</a>
		<a href="/tools/x11stuff/#x11stuff-aux">a again</a>
		<a href="/tools/x11stuff/#x11stuff">self</a>
	</body></html>`
	page, err := ParseToolPage(strings.NewReader(doc), "/tools/x11stuff/")
	require.NoError(t, err)
	require.Equal(t, []string{"x11stuff-aux"}, page.Subpackages)
}

func TestParseToolPageFallsBackToPathName(t *testing.T) {
	page, err := ParseToolPage(strings.NewReader("<html><body><p>sparse page</p></body></html>"), "/tools/nmap/")
	require.NoError(t, err)
	require.Equal(t, "nmap", page.Package)
	require.Equal(t, "", page.Category)
	require.Empty(t, page.Subpackages)
}

func TestParseToolPageCommaSeparatedTags(t *testing.T) {
	doc := `<html><body><dl>
		<dt>Package</dt><dd>hydra</dd>
		<dt>Category</dt><dd>Cracking, Bruteforce</dd>
	</dl></body></html>`
	page, err := ParseToolPage(strings.NewReader(doc), "/tools/hydra/")
	require.NoError(t, err)
	require.Equal(t, "password", page.Category)
}

func TestParseToolPageInvalidPath(t *testing.T) {
	_, err := ParseToolPage(strings.NewReader("<html></html>"), "/nope/")
	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, domain.CodeParse, derr.Code)
}
