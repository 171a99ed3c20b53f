// Package pkgstate answers "is this package installed" with a short-lived
// cache in front of the package manager, so UI listings do not hammer
// dpkg-query.
package pkgstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"kalitools/internal/domain"
	"kalitools/internal/infra/apt"
)

// Oracle caches installed state per package with a TTL. A query error is
// always surfaced to the caller; stale or missing entries never degrade to
// a silent "not installed".
type Oracle struct {
	mu      sync.Mutex
	entries map[string]domain.InstalledState
	backend apt.Backend
	ttl     time.Duration
	clock   func() time.Time
	logger  *zap.Logger
}

func NewOracle(backend apt.Backend, ttl time.Duration, logger *zap.Logger) *Oracle {
	if ttl <= 0 {
		ttl = time.Duration(domain.DefaultStateTTLSeconds) * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		entries: make(map[string]domain.InstalledState),
		backend: backend,
		ttl:     ttl,
		clock:   time.Now,
		logger:  logger.Named("pkgstate"),
	}
}

// IsInstalled reports whether a single package is installed.
func (o *Oracle) IsInstalled(ctx context.Context, name string) (bool, error) {
	states, err := o.BulkIsInstalled(ctx, []string{name})
	if err != nil {
		return false, err
	}
	return states[name], nil
}

// BulkIsInstalled resolves installed state for many packages at once. Fresh
// cache entries are served directly; all misses go to the backend in a
// single batched query.
func (o *Oracle) BulkIsInstalled(ctx context.Context, names []string) (map[string]bool, error) {
	now := o.clock()
	result := make(map[string]bool, len(names))

	o.mu.Lock()
	var misses []string
	for _, name := range names {
		state, ok := o.entries[name]
		if ok && now.Sub(state.FetchedAt) < o.ttl {
			result[name] = state.Installed
			continue
		}
		misses = append(misses, name)
	}
	o.mu.Unlock()

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := o.backend.QueryInstalled(ctx, misses)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	for name, installed := range fetched {
		o.entries[name] = domain.InstalledState{Installed: installed, FetchedAt: now}
		result[name] = installed
	}
	o.mu.Unlock()

	o.logger.Debug("installed state refreshed",
		zap.Int("cached", len(names)-len(misses)), zap.Int("queried", len(misses)))
	return result, nil
}

// Invalidate drops the cached entry for one package. Called after an
// install or remove so the next query reflects reality.
func (o *Oracle) Invalidate(name string) {
	o.mu.Lock()
	delete(o.entries, name)
	o.mu.Unlock()
}

// InvalidateAll drops every cached entry.
func (o *Oracle) InvalidateAll() {
	o.mu.Lock()
	o.entries = make(map[string]domain.InstalledState)
	o.mu.Unlock()
}
