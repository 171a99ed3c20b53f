package apt

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"kalitools/internal/domain"
)

// DependencyLister is the slice of Backend the meta-package scanner needs.
type DependencyLister interface {
	DirectDepends(ctx context.Context, name string) ([]string, error)
}

// MetaScanner walks Kali meta-packages (kali-linux-top10 and friends) and
// collects the concrete tools they pull in. Scan results are additive:
// callers merge them into the catalog without overwriting richer entries.
type MetaScanner struct {
	backend DependencyLister
	roots   []string
	logger  *zap.Logger
}

func NewMetaScanner(backend DependencyLister, roots []string, logger *zap.Logger) *MetaScanner {
	if len(roots) == 0 {
		roots = domain.MetaPackageRoots
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaScanner{backend: backend, roots: roots, logger: logger.Named("metascan")}
}

// Scan traverses the dependency closure of every root breadth-first.
// Intermediate kali-* meta-packages are followed but not reported; leaf
// packages matching a deny prefix (libraries, fonts, kernels) are skipped.
// A root that cannot be queried is logged and skipped, it does not abort
// the scan.
func (m *MetaScanner) Scan(ctx context.Context) ([]domain.Tool, error) {
	seen := make(map[string]struct{})
	queue := append([]string(nil), m.roots...)
	var tools []domain.Tool

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return tools, domain.Wrap(domain.CodeCanceled, "apt.metascan", err)
		}
		name := queue[0]
		queue = queue[1:]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		deps, err := m.backend.DirectDepends(ctx, name)
		if err != nil {
			if domain.CodeFrom(err) == domain.CodeCanceled {
				return tools, err
			}
			m.logger.Warn("meta-package query failed", zap.String("package", name), zap.Error(err))
			continue
		}
		for _, dep := range deps {
			if strings.HasPrefix(dep, "kali-") {
				queue = append(queue, dep)
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			if denied(dep) || !domain.ValidPackageName(dep) {
				continue
			}
			tools = append(tools, domain.Tool{
				Name:     dep,
				Category: domain.CategoryUnknown,
				Source:   domain.SourceMeta,
			})
		}
	}

	m.logger.Info("meta-package scan finished",
		zap.Int("roots", len(m.roots)), zap.Int("tools", len(tools)))
	return tools, nil
}

func denied(name string) bool {
	for _, prefix := range domain.MetaScanDenyPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
