package domain

import (
	"regexp"
	"strings"
	"time"
)

// PackageNamePattern is the Debian-style package name shape accepted for
// tools and sub-packages.
var PackageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+.\-]{2,}$`)

// ValidPackageName reports whether name is an acceptable package identifier.
func ValidPackageName(name string) bool {
	return PackageNamePattern.MatchString(name)
}

// Tool is one catalog entry. Name is the unique key. Installed state is
// deliberately absent: it is derived from the live system, never persisted.
type Tool struct {
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Description  string     `json:"description,omitempty"`
	Homepage     string     `json:"homepage,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Subpackages  []string   `json:"subpackages"`
	Source       ToolSource `json:"source"`
}

// Normalize trims and lowercases the key fields and enforces the Tool
// invariants: subpackages never contain the tool's own name or duplicates,
// category falls back to the unknown sentinel.
func (t *Tool) Normalize() {
	t.Name = strings.ToLower(strings.TrimSpace(t.Name))
	t.Category = strings.ToLower(strings.TrimSpace(t.Category))
	if t.Category == "" {
		t.Category = CategoryUnknown
	}
	t.Description = strings.TrimSpace(t.Description)
	t.Homepage = strings.TrimSpace(t.Homepage)
	t.Dependencies = dedupePreserveOrder(t.Dependencies, "")
	t.Subpackages = dedupePreserveOrder(t.Subpackages, t.Name)
	if t.Subpackages == nil {
		t.Subpackages = []string{}
	}
}

// Clone returns a deep copy so callers can hand tools across goroutines
// without sharing slices.
func (t Tool) Clone() Tool {
	out := t
	out.Dependencies = append([]string(nil), t.Dependencies...)
	out.Subpackages = append([]string(nil), t.Subpackages...)
	if out.Subpackages == nil {
		out.Subpackages = []string{}
	}
	return out
}

// Field provides mapping-style access for legacy key lookups ("name",
// "category", ...). Unknown keys return the empty string.
func (t Tool) Field(key string) string {
	switch strings.ToLower(key) {
	case "name":
		return t.Name
	case "category":
		return t.Category
	case "description":
		return t.Description
	case "homepage":
		return t.Homepage
	case "source":
		return string(t.Source)
	default:
		return ""
	}
}

func dedupePreserveOrder(values []string, exclude string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || v == exclude {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// InstalledState is the Oracle's answer for one package: derived from the
// live package database, with the time it was fetched.
type InstalledState struct {
	Installed bool
	FetchedAt time.Time
}

// ToolStatus pairs a catalog entry with its live installed flag for display.
type ToolStatus struct {
	Tool      Tool
	Installed bool
}
