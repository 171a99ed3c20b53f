// Package catalog owns the durable tool catalog: loading, merge commits,
// and atomic persistence.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"kalitools/internal/domain"
	"kalitools/internal/infra/fsutil"
)

// record is the persisted shape of one tool. Subpackages may be absent in
// files written by older versions; loading defaults it to empty.
type record struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Description  string   `json:"description,omitempty"`
	Homepage     string   `json:"homepage,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Subpackages  []string `json:"subpackages"`
	Source       string   `json:"source,omitempty"`
}

// Store is the durable catalog. All mutating accessors persist before
// returning; a persistence failure aborts the mutation and leaves both the
// on-disk file and the in-memory view untouched.
type Store struct {
	mu      sync.RWMutex
	path    string
	catalog *domain.Catalog
	logger  *zap.Logger
}

// Open loads the catalog at path. A missing file yields an empty catalog;
// a malformed file is an error, never silently discarded.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("catalog path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:    path,
		catalog: domain.NewCatalog(),
		logger:  logger.Named("catalog"),
	}

	loaded, found, err := load(path)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Info("no catalog file, starting empty", zap.String("path", path))
		return s, nil
	}
	s.catalog = loaded
	s.logger.Info("catalog loaded", zap.String("path", path), zap.Int("tools", s.catalog.Len()))
	return s, nil
}

func load(path string) (*domain.Catalog, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read catalog: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("decode catalog: %w", err)
	}
	c := domain.NewCatalog()
	for _, rec := range records {
		c.Put(domain.Tool{
			Name:         rec.Name,
			Category:     rec.Category,
			Description:  rec.Description,
			Homepage:     rec.Homepage,
			Dependencies: rec.Dependencies,
			Subpackages:  rec.Subpackages,
			Source:       domain.ToolSource(rec.Source),
		})
	}
	return c, true, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Len()
}

func (s *Store) Get(name string) (domain.Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Get(name)
}

func (s *Store) List() []domain.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.List()
}

func (s *Store) Sorted() []domain.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Sorted()
}

func (s *Store) Search(query string) []domain.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Search(query)
}

func (s *Store) FilterCategory(category string) []domain.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.FilterCategory(category)
}

func (s *Store) Stats(installed map[string]bool) domain.CatalogStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.ComputeStats(installed)
}

// Merge commits discovery results into the catalog and persists.
func (s *Store) Merge(incoming []domain.Tool, opts domain.MergeOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.catalog.Clone()
	next.Merge(incoming, opts)
	if err := s.persist(next); err != nil {
		return err
	}
	s.catalog = next
	s.logger.Info("catalog merged",
		zap.Int("incoming", len(incoming)),
		zap.Int("total", next.Len()),
		zap.Bool("prune", opts.Prune),
	)
	return nil
}

// Add inserts a user-added tool and persists. The name must pass the
// package-name pattern and must not collide with an existing entry.
func (s *Store) Add(tool domain.Tool) error {
	tool.Normalize()
	if !domain.ValidPackageName(tool.Name) {
		return domain.E(domain.CodeInvalidArgument, "catalog.add", "invalid package name "+tool.Name, nil)
	}
	tool.Source = domain.SourceUser

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.catalog.Get(tool.Name); exists {
		return domain.E(domain.CodeInvalidArgument, "catalog.add", tool.Name+" already present", nil)
	}
	next := s.catalog.Clone()
	next.Put(tool)
	if err := s.persist(next); err != nil {
		return err
	}
	s.catalog = next
	return nil
}

// Remove deletes a tool from the catalog and persists. This is a logical
// removal from the catalog, not an uninstall from the system.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.catalog.Clone()
	if !next.Remove(name) {
		return domain.ErrToolNotFound
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.catalog = next
	return nil
}

// Reload re-reads the on-disk file, replacing the in-memory view. Used by
// the file watcher when the catalog is edited externally.
func (s *Store) Reload() error {
	loaded, found, err := load(s.path)
	if err != nil {
		return err
	}
	if !found {
		loaded = domain.NewCatalog()
	}
	s.mu.Lock()
	s.catalog = loaded
	s.mu.Unlock()
	s.logger.Info("catalog reloaded", zap.Int("tools", loaded.Len()))
	return nil
}

// persist writes the catalog atomically. Callers must hold the write lock.
func (s *Store) persist(c *domain.Catalog) error {
	tools := c.List()
	records := make([]record, 0, len(tools))
	for _, t := range tools {
		records = append(records, record{
			Name:         t.Name,
			Category:     t.Category,
			Description:  t.Description,
			Homepage:     t.Homepage,
			Dependencies: t.Dependencies,
			Subpackages:  t.Subpackages,
			Source:       string(t.Source),
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, fsutil.DefaultFileMode); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}
	return nil
}
