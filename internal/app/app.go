package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"kalitools/internal/domain"
	"kalitools/internal/infra/apt"
	"kalitools/internal/infra/catalog"
	"kalitools/internal/infra/notifications"
	"kalitools/internal/infra/pkgstate"
	"kalitools/internal/infra/scrape"
)

// App owns every long-lived component and exposes the operations the CLI
// runs. Close releases the link cache; everything else is in-process state.
type App struct {
	Config       Config
	Store        *catalog.Store
	Oracle       *pkgstate.Oracle
	Backend      apt.Backend
	Discovery    *Discovery
	Orchestrator *Orchestrator
	Hub          *notifications.Hub

	linkCache *scrape.LinkCache
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := catalog.Open(cfg.CatalogPath, logger)
	if err != nil {
		return nil, err
	}

	linkCache, err := scrape.OpenLinkCache(cfg.LinkCachePath)
	if err != nil {
		// Discovery degrades to refetching the index every run.
		logger.Warn("link cache unavailable", zap.Error(err))
		linkCache = nil
	}

	backend := apt.NewSystem(nil, logger)
	oracle := pkgstate.NewOracle(backend, cfg.StateTTL, logger)
	hub := notifications.NewHub()

	fetcher := scrape.NewFetcher(scrape.FetcherConfig{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		MinDelay:  cfg.RequestDelay,
		Timeout:   cfg.FetchTimeout,
		Retry: scrape.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   cfg.RetryBase,
			MaxDelay:    cfg.RetryMax,
		},
	}, logger)

	discovery := NewDiscovery(DiscoveryDeps{
		Fetcher:   fetcher,
		LinkCache: linkCache,
		Store:     store,
		Scanner:   apt.NewMetaScanner(backend, cfg.MetaPackages, logger),
		Emitter:   hub,
		IndexPath: cfg.IndexPath,
		LinkTTL:   cfg.LinkCacheTTL,
		Logger:    logger,
	})

	return &App{
		Config:       cfg,
		Store:        store,
		Oracle:       oracle,
		Backend:      backend,
		Discovery:    discovery,
		Orchestrator: NewOrchestrator(backend, oracle, hub, logger),
		Hub:          hub,
		linkCache:    linkCache,
		logger:       logger,
	}, nil
}

func (a *App) Close() error {
	if a.linkCache != nil {
		return a.linkCache.Close()
	}
	return nil
}

// Statuses pairs catalog entries with their installed state, resolved in
// one batched query.
func (a *App) Statuses(ctx context.Context, tools []domain.Tool) ([]domain.ToolStatus, error) {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	installed, err := a.Oracle.BulkIsInstalled(ctx, names)
	if err != nil {
		return nil, err
	}
	statuses := make([]domain.ToolStatus, 0, len(tools))
	for _, tool := range tools {
		statuses = append(statuses, domain.ToolStatus{Tool: tool, Installed: installed[tool.Name]})
	}
	return statuses, nil
}

// Info returns a tool's catalog entry with installed state, filling in the
// description and dependency list from the package manager when the catalog
// does not have them yet. Enrichment failures are tolerated, the catalog
// entry alone is still useful.
func (a *App) Info(ctx context.Context, name string) (domain.ToolStatus, error) {
	tool, ok := a.Store.Get(name)
	if !ok {
		return domain.ToolStatus{}, domain.E(domain.CodeNotFound, "app.info",
			fmt.Sprintf("%q is not in the catalog", name), domain.ErrToolNotFound)
	}
	installed, err := a.Oracle.IsInstalled(ctx, name)
	if err != nil {
		return domain.ToolStatus{}, err
	}

	if tool.Description == "" {
		if desc, err := a.Backend.Description(ctx, name); err == nil {
			tool.Description = desc
		}
	}
	if len(tool.Dependencies) == 0 {
		if deps, err := a.Backend.Dependencies(ctx, name); err == nil {
			tool.Dependencies = deps
		}
	}
	return domain.ToolStatus{Tool: tool, Installed: installed}, nil
}

// ExportFormat selects the wire format of catalog exports.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// ParseExportFormat maps a --format value onto a known format.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", domain.E(domain.CodeInvalidArgument, "app.export",
			fmt.Sprintf("unknown format %q (json or yaml)", s), nil)
	}
}

// Export writes the catalog sorted by name so exports diff cleanly.
func (a *App) Export(w io.Writer, format ExportFormat) error {
	tools := a.Store.Sorted()
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tools); err != nil {
			return fmt.Errorf("encode export: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tools); err != nil {
			return fmt.Errorf("encode export: %w", err)
		}
		return nil
	}
}

// Import merges tools from an export into the catalog. Entries with an
// invalid name are rejected before anything is merged.
func (a *App) Import(r io.Reader, format ExportFormat) (int, error) {
	var tools []domain.Tool
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&tools)
	default:
		err = json.NewDecoder(r).Decode(&tools)
	}
	if err != nil {
		return 0, domain.E(domain.CodeParse, "app.import", "decode import", err)
	}
	for i := range tools {
		tools[i].Normalize()
		if !domain.ValidPackageName(tools[i].Name) {
			return 0, domain.E(domain.CodeInvalidArgument, "app.import",
				fmt.Sprintf("invalid package name %q", tools[i].Name), nil)
		}
		if tools[i].Source == "" {
			tools[i].Source = domain.SourceUser
		}
	}
	if err := a.Store.Merge(tools, domain.MergeOptions{}); err != nil {
		return 0, err
	}
	if a.Hub != nil {
		a.Hub.Emit(domain.ChangeEvent{Kind: domain.KindCatalogMerged, Count: len(tools)})
	}
	return len(tools), nil
}

// CheckUpdates lists catalog packages with a newer candidate version.
func (a *App) CheckUpdates(ctx context.Context) ([]string, error) {
	upgradable, err := a.Backend.ListUpgradable(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range upgradable {
		if _, ok := a.Store.Get(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Stats summarizes the catalog, including installed counts per category.
func (a *App) Stats(ctx context.Context) (domain.CatalogStats, error) {
	tools := a.Store.List()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	installed, err := a.Oracle.BulkIsInstalled(ctx, names)
	if err != nil {
		return domain.CatalogStats{}, err
	}
	return a.Store.Stats(installed), nil
}
