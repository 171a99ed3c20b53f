package domain

import (
	"sort"
	"strings"
)

// Catalog is the full set of known tools keyed by package name. Insertion
// order is preserved so display follows first-seen order when no explicit
// sort is requested.
type Catalog struct {
	tools map[string]Tool
	order []string
}

func NewCatalog() *Catalog {
	return &Catalog{tools: make(map[string]Tool)}
}

func (c *Catalog) Len() int {
	return len(c.tools)
}

func (c *Catalog) Get(name string) (Tool, bool) {
	t, ok := c.tools[strings.ToLower(name)]
	if !ok {
		return Tool{}, false
	}
	return t.Clone(), true
}

// Put inserts or replaces a tool, normalizing it first.
func (c *Catalog) Put(t Tool) {
	t.Normalize()
	if t.Name == "" {
		return
	}
	if _, exists := c.tools[t.Name]; !exists {
		c.order = append(c.order, t.Name)
	}
	c.tools[t.Name] = t
}

// Remove deletes a tool by name, reporting whether it was present.
func (c *Catalog) Remove(name string) bool {
	name = strings.ToLower(name)
	if _, ok := c.tools[name]; !ok {
		return false
	}
	delete(c.tools, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all tools in insertion order.
func (c *Catalog) List() []Tool {
	out := make([]Tool, 0, len(c.order))
	for _, name := range c.order {
		if t, ok := c.tools[name]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Names returns all tool names in insertion order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Sorted returns all tools ordered by name.
func (c *Catalog) Sorted() []Tool {
	out := c.List()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Search returns tools whose name or description contains the query,
// case-insensitively.
func (c *Catalog) Search(query string) []Tool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.List()
	}
	var out []Tool
	for _, name := range c.order {
		t := c.tools[name]
		if strings.Contains(t.Name, query) || strings.Contains(strings.ToLower(t.Description), query) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// FilterCategory returns tools in the given category.
func (c *Catalog) FilterCategory(category string) []Tool {
	category = strings.ToLower(strings.TrimSpace(category))
	var out []Tool
	for _, name := range c.order {
		if t := c.tools[name]; t.Category == category {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Clone returns an independent copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := NewCatalog()
	for _, name := range c.order {
		out.Put(c.tools[name])
	}
	return out
}

// MergeOptions controls how discovery results fold into an existing catalog.
type MergeOptions struct {
	// Prune drops entries that were not re-observed by the current scrape.
	// Off by default: absence from one scrape never silently deletes data.
	Prune bool
}

// Merge folds incoming discovery results into the catalog.
//
// Precedence rules:
//   - scrape-sourced records overwrite category/description/homepage/
//     subpackages of existing scrape- or meta-sourced records;
//   - meta-scan records are additive: they add unknown tools and fill empty
//     fields but never overwrite populated ones;
//   - user-sourced records in the existing catalog are never overwritten;
//   - entries not re-observed are retained unless opts.Prune is set, in
//     which case only scrape-sourced entries are dropped.
func (c *Catalog) Merge(incoming []Tool, opts MergeOptions) {
	observed := make(map[string]struct{}, len(incoming))
	for _, in := range incoming {
		in.Normalize()
		if in.Name == "" {
			continue
		}
		observed[in.Name] = struct{}{}
		existing, ok := c.tools[in.Name]
		if !ok {
			c.Put(in)
			continue
		}
		if existing.Source == SourceUser {
			continue
		}
		switch in.Source {
		case SourceScrape:
			merged := existing.Clone()
			merged.Category = in.Category
			merged.Subpackages = append([]string(nil), in.Subpackages...)
			if in.Description != "" {
				merged.Description = in.Description
			}
			if in.Homepage != "" {
				merged.Homepage = in.Homepage
			}
			merged.Source = SourceScrape
			c.Put(merged)
		case SourceMeta:
			merged := existing.Clone()
			if merged.Category == CategoryUnknown && in.Category != CategoryUnknown {
				merged.Category = in.Category
			}
			if merged.Description == "" {
				merged.Description = in.Description
			}
			c.Put(merged)
		default:
			c.Put(in)
		}
	}
	if !opts.Prune {
		return
	}
	for _, name := range c.Names() {
		if _, ok := observed[name]; ok {
			continue
		}
		if t := c.tools[name]; t.Source == SourceScrape {
			c.Remove(name)
		}
	}
}

// Stats summarizes the catalog for display.
type CatalogStats struct {
	Total      int
	Installed  int
	Categories map[string]CategoryStats
}

type CategoryStats struct {
	Total     int
	Installed int
}

// ComputeStats aggregates totals per category given live installed flags.
func (c *Catalog) ComputeStats(installed map[string]bool) CatalogStats {
	stats := CatalogStats{Categories: make(map[string]CategoryStats)}
	for _, name := range c.order {
		t := c.tools[name]
		stats.Total++
		cs := stats.Categories[t.Category]
		cs.Total++
		if installed[t.Name] {
			stats.Installed++
			cs.Installed++
		}
		stats.Categories[t.Category] = cs
	}
	return stats
}
