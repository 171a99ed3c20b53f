package app

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kalitools/internal/domain"
	"kalitools/internal/infra/apt"
	"kalitools/internal/infra/catalog"
	"kalitools/internal/infra/scrape"
)

// Discovery walks the remote tool index, parses every tool page and merges
// the result into the catalog. Individual page failures are recorded in
// the report and never abort the run; only an unreachable index, a persist
// failure or cancellation do.
type Discovery struct {
	fetcher   *scrape.Fetcher
	linkCache *scrape.LinkCache
	store     *catalog.Store
	scanner   *apt.MetaScanner
	emitter   domain.ChangeEmitter
	indexPath string
	linkTTL   time.Duration
	logger    *zap.Logger
}

type DiscoveryDeps struct {
	Fetcher   *scrape.Fetcher
	LinkCache *scrape.LinkCache
	Store     *catalog.Store
	Scanner   *apt.MetaScanner
	Emitter   domain.ChangeEmitter
	IndexPath string
	LinkTTL   time.Duration
	Logger    *zap.Logger
}

func NewDiscovery(deps DiscoveryDeps) *Discovery {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	indexPath := deps.IndexPath
	if indexPath == "" {
		indexPath = domain.DefaultIndexPath
	}
	return &Discovery{
		fetcher:   deps.Fetcher,
		linkCache: deps.LinkCache,
		store:     deps.Store,
		scanner:   deps.Scanner,
		emitter:   deps.Emitter,
		indexPath: indexPath,
		linkTTL:   deps.LinkTTL,
		logger:    logger.Named("discovery"),
	}
}

type DiscoverOptions struct {
	// Prune drops scraped catalog entries that were not re-observed.
	Prune bool
	// RefreshLinks bypasses the link cache and refetches the index.
	RefreshLinks bool
	// SkipMetaScan leaves the local meta-package scan out of the run.
	SkipMetaScan bool
}

// Run performs one full discovery pass and returns its report.
func (d *Discovery) Run(ctx context.Context, opts DiscoverOptions) (*domain.DiscoveryReport, error) {
	report := &domain.DiscoveryReport{Started: time.Now()}

	paths, err := d.toolPaths(ctx, opts, report)
	if err != nil {
		return report, err
	}
	report.LinksFound = len(paths)

	var tools []domain.Tool
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, domain.Wrap(domain.CodeCanceled, "discovery.run", err)
		}
		tool, err := d.scrapeTool(ctx, path)
		if err != nil {
			if domain.CodeFrom(err) == domain.CodeCanceled {
				return report, err
			}
			report.Failures = append(report.Failures, domain.DiscoveryFailure{
				Path: path,
				Code: domain.CodeFrom(err),
				Err:  err.Error(),
			})
			d.logger.Warn("tool page failed", zap.String("path", path), zap.Error(err))
			continue
		}
		tools = append(tools, tool)
	}
	report.ToolsParsed = len(tools)

	if d.scanner != nil && !opts.SkipMetaScan {
		metaTools, err := d.scanner.Scan(ctx)
		if err != nil {
			if domain.CodeFrom(err) == domain.CodeCanceled {
				return report, err
			}
			d.logger.Warn("meta-package scan failed", zap.Error(err))
		}
		tools = append(tools, metaTools...)
		report.MetaAdded = len(metaTools)
	}

	if err := d.store.Merge(tools, domain.MergeOptions{Prune: opts.Prune}); err != nil {
		return report, err
	}
	if d.emitter != nil {
		d.emitter.Emit(domain.ChangeEvent{
			Kind:  domain.KindCatalogMerged,
			Count: len(tools),
			At:    time.Now(),
		})
	}

	report.Finished = time.Now()
	d.logger.Info("discovery finished",
		zap.Int("links", report.LinksFound),
		zap.Int("parsed", report.ToolsParsed),
		zap.Int("meta", report.MetaAdded),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("took", report.Duration()))
	return report, nil
}

// toolPaths returns the canonical tool page paths, from the link cache when
// it is fresh, otherwise from the remote index.
func (d *Discovery) toolPaths(ctx context.Context, opts DiscoverOptions, report *domain.DiscoveryReport) ([]string, error) {
	if d.linkCache != nil && !opts.RefreshLinks {
		cached, fresh, err := d.linkCache.Get(d.linkTTL)
		if err != nil {
			d.logger.Warn("link cache read failed", zap.Error(err))
		} else if fresh {
			d.logger.Debug("serving tool links from cache", zap.Int("links", len(cached)))
			return cached, nil
		}
	}

	body, err := d.fetcher.Get(ctx, d.indexPath)
	if err != nil {
		if domain.CodeFrom(err) == domain.CodeCanceled {
			return nil, err
		}
		return nil, domain.E(domain.CodeFetch, "discovery.index",
			domain.ErrIndexUnreachable.Error(), fmt.Errorf("%w: %w", domain.ErrIndexUnreachable, err))
	}
	links, err := scrape.ExtractToolLinks(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	report.LinksDiscarded = links.Discarded

	if d.linkCache != nil {
		if err := d.linkCache.Put(links.Paths); err != nil {
			d.logger.Warn("link cache write failed", zap.Error(err))
		}
	}
	return links.Paths, nil
}

func (d *Discovery) scrapeTool(ctx context.Context, path string) (domain.Tool, error) {
	body, err := d.fetcher.Get(ctx, path)
	if err != nil {
		return domain.Tool{}, err
	}
	page, err := scrape.ParseToolPage(bytes.NewReader(body), path)
	if err != nil {
		return domain.Tool{}, err
	}
	return domain.Tool{
		Name:        page.Package,
		Category:    page.Category,
		Homepage:    page.Homepage,
		Subpackages: page.Subpackages,
		Source:      domain.SourceScrape,
	}, nil
}
