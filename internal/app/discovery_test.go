package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kalitools/internal/domain"
	"kalitools/internal/infra/apt"
	"kalitools/internal/infra/catalog"
	"kalitools/internal/infra/scrape"
)

func indexPage(names ...string) string {
	body := "<html><body><ul>"
	for _, name := range names {
		body += fmt.Sprintf(`<li><a href="/tools/%s/">%s</a></li>`, name, name)
	}
	return body + `<a href="/blog/post/">post</a></ul></body></html>`
}

func toolPage(name, tag string) string {
	return fmt.Sprintf(`<html><body><dl>
		<dt>Package</dt><dd>%s</dd>
		<dt>Tags</dt><dd><a href="/tags/%s/">%s</a></dd>
		<dt>Homepage</dt><dd><a href="https://example.org/%s">site</a></dd>
	</dl></body></html>`, name, tag, tag, name)
}

func newTestDiscovery(t *testing.T, handler http.Handler, scanner *apt.MetaScanner) (*Discovery, *catalog.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.json"), nil)
	require.NoError(t, err)

	fetcher := scrape.NewFetcher(scrape.FetcherConfig{
		BaseURL: server.URL,
		Retry:   scrape.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, nil)

	d := NewDiscovery(DiscoveryDeps{
		Fetcher: fetcher,
		Store:   store,
		Scanner: scanner,
	})
	return d, store
}

func TestDiscoveryRun(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/all-tools/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, indexPage("nmap", "hydra"))
	})
	mux.HandleFunc("/tools/nmap/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolPage("nmap", "recon"))
	})
	mux.HandleFunc("/tools/hydra/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolPage("hydra", "password"))
	})
	d, store := newTestDiscovery(t, mux, nil)

	report, err := d.Run(context.Background(), DiscoverOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, report.LinksFound)
	require.Equal(t, 1, report.LinksDiscarded)
	require.Equal(t, 2, report.ToolsParsed)
	require.Empty(t, report.Failures)

	nmap, ok := store.Get("nmap")
	require.True(t, ok)
	require.Equal(t, "recon", nmap.Category)
	require.Equal(t, "https://example.org/nmap", nmap.Homepage)
	require.Equal(t, domain.SourceScrape, nmap.Source)
}

func TestDiscoveryIsolatesPageFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/all-tools/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, indexPage("nmap", "broken", "hydra"))
	})
	mux.HandleFunc("/tools/nmap/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolPage("nmap", "recon"))
	})
	mux.HandleFunc("/tools/hydra/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolPage("hydra", "password"))
	})
	// /tools/broken/ falls through to the mux 404.
	d, store := newTestDiscovery(t, mux, nil)

	report, err := d.Run(context.Background(), DiscoverOptions{})
	require.NoError(t, err, "a single bad page must not fail the run")
	require.Equal(t, 2, report.ToolsParsed)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "/tools/broken/", report.Failures[0].Path)
	require.Equal(t, domain.CodeFetch, report.Failures[0].Code)
	require.Equal(t, 2, store.Len())
}

func TestDiscoveryUnreachableIndexIsFatal(t *testing.T) {
	d, store := newTestDiscovery(t, http.NotFoundHandler(), nil)

	_, err := d.Run(context.Background(), DiscoverOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrIndexUnreachable)
	require.Zero(t, store.Len())
}

func TestDiscoveryPrune(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/all-tools/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, indexPage("nmap"))
	})
	mux.HandleFunc("/tools/nmap/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolPage("nmap", "recon"))
	})
	d, store := newTestDiscovery(t, mux, nil)

	require.NoError(t, store.Merge([]domain.Tool{
		{Name: "retired-tool", Source: domain.SourceScrape},
		{Name: "mytool", Source: domain.SourceUser},
	}, domain.MergeOptions{}))

	_, err := d.Run(context.Background(), DiscoverOptions{Prune: true})
	require.NoError(t, err)

	_, ok := store.Get("retired-tool")
	require.False(t, ok, "pruning drops scraped entries not re-observed")
	_, ok = store.Get("mytool")
	require.True(t, ok, "user entries survive pruning")
	_, ok = store.Get("nmap")
	require.True(t, ok)
}

type staticDepends struct {
	graph map[string][]string
}

func (s staticDepends) DirectDepends(_ context.Context, name string) ([]string, error) {
	deps, ok := s.graph[name]
	if !ok {
		return nil, errors.New("no such package")
	}
	return deps, nil
}

func TestDiscoveryMetaScanIsAdditive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/all-tools/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, indexPage("nmap"))
	})
	mux.HandleFunc("/tools/nmap/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, toolPage("nmap", "recon"))
	})
	scanner := apt.NewMetaScanner(staticDepends{graph: map[string][]string{
		"kali-linux-top10": {"nmap", "john"},
	}}, []string{"kali-linux-top10"}, nil)
	d, store := newTestDiscovery(t, mux, scanner)

	report, err := d.Run(context.Background(), DiscoverOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, report.MetaAdded)

	nmap, ok := store.Get("nmap")
	require.True(t, ok)
	require.Equal(t, "recon", nmap.Category, "scraped metadata wins over the meta-scan stub")
	require.Equal(t, domain.SourceScrape, nmap.Source)

	john, ok := store.Get("john")
	require.True(t, ok)
	require.Equal(t, domain.SourceMeta, john.Source)
}

func TestDiscoveryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/all-tools/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, indexPage("nmap", "hydra"))
	})
	mux.HandleFunc("/tools/", func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		fmt.Fprint(w, toolPage("nmap", "recon"))
	})
	d, _ := newTestDiscovery(t, mux, nil)

	_, err := d.Run(ctx, DiscoverOptions{})
	require.Error(t, err)
	require.Equal(t, domain.CodeCanceled, domain.CodeFrom(err))
}
