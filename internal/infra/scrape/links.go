// Package scrape turns the remote tool index and per-tool pages into raw
// catalog records.
package scrape

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"kalitools/internal/domain"
)

// LinkSet is the result of extracting tool links from the index page.
// Paths keeps first-seen order; Discarded counts links that failed the
// shape check.
type LinkSet struct {
	Paths     []string
	Discarded int
}

// ExtractToolLinks walks the index document and collects canonical
// "/tools/<name>/" paths. Fragments are stripped before dedup; anything not
// decomposing into exactly the two segments (tools, <name>) with a valid
// package name is discarded silently.
func ExtractToolLinks(r io.Reader) (LinkSet, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return LinkSet{}, domain.E(domain.CodeParse, "scrape.links", "parse index html", err)
	}

	set := LinkSet{}
	seen := make(map[string]struct{})

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := attr(n, "href"); ok {
				path, valid := CanonicalToolPath(href)
				if !valid {
					set.Discarded++
				} else if _, dup := seen[path]; !dup {
					seen[path] = struct{}{}
					set.Paths = append(set.Paths, path)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	return set, nil
}

// CanonicalToolPath normalizes an href into the "/tools/<name>/" form,
// reporting whether it passed the shape check. Absolute URLs on any host are
// reduced to their path first.
func CanonicalToolPath(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	if i := strings.Index(href, "#"); i >= 0 {
		href = href[:i]
	}
	if i := strings.Index(href, "://"); i >= 0 {
		rest := href[i+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return "", false
		}
		href = rest[slash:]
	}
	if !strings.HasPrefix(href, "/") {
		return "", false
	}
	segments := splitPath(href)
	if len(segments) != 2 || segments[0] != "tools" {
		return "", false
	}
	name := segments[1]
	if !domain.ValidPackageName(name) {
		return "", false
	}
	return "/tools/" + name + "/", true
}

// ToolNameFromPath extracts <name> from a canonical "/tools/<name>/" path.
func ToolNameFromPath(path string) string {
	segments := splitPath(path)
	if len(segments) != 2 || segments[0] != "tools" {
		return ""
	}
	return segments[1]
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
