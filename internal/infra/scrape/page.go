package scrape

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"kalitools/internal/domain"
)

// ParsedPage is the outcome of parsing one tool page.
type ParsedPage struct {
	Package     string
	Category    string
	Homepage    string
	Subpackages []string
}

// ParseToolPage parses a single tool page. toolPath is the canonical
// "/tools/<name>/" path the page was fetched from; it anchors sub-package
// link matching and serves as the package-name fallback.
//
// Malformed markup or an unusable primary name yields a PARSE error rather
// than a guessed partial result.
func ParseToolPage(r io.Reader, toolPath string) (ParsedPage, error) {
	pathName := ToolNameFromPath(toolPath)
	if pathName == "" {
		return ParsedPage{}, domain.E(domain.CodeParse, "scrape.page", "invalid tool path "+toolPath, nil)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return ParsedPage{}, domain.E(domain.CodeParse, "scrape.page", "parse tool page html", err)
	}

	page := ParsedPage{}
	var tags []string

	// Structured metadata lives in definition lists: <dt>Package</dt>
	// <dd>name</dd>, <dt>Tags</dt><dd>...</dd>, <dt>Homepage</dt><dd><a>.
	forEachDefinition(doc, func(label string, dd *html.Node) {
		switch {
		case label == "package" || label == "tool" || label == "name":
			if page.Package == "" {
				candidate := strings.ToLower(textContent(dd))
				if domain.ValidPackageName(candidate) {
					page.Package = candidate
				}
			}
		case strings.Contains(label, "homepage"):
			if page.Homepage == "" {
				page.Homepage = firstAnchorHref(dd)
			}
		case strings.Contains(label, "categor") || strings.Contains(label, "tag"):
			tags = append(tags, definitionValues(dd)...)
		}
	})

	if page.Package == "" {
		page.Package = pathName
	}
	if !domain.ValidPackageName(page.Package) {
		return ParsedPage{}, domain.E(domain.CodeParse, "scrape.page", "no usable package name on "+toolPath, nil)
	}

	page.Category = domain.CategoryFromTags(tags)
	page.Subpackages = extractSubpackages(doc, pathName, page.Package)
	return page, nil
}

// extractSubpackages collects anchors of the form /tools/<name>/#<sub>.
// The primary package is excluded and duplicates collapse, keeping document
// order.
func extractSubpackages(doc *html.Node, pathName, primary string) []string {
	relPrefix := "/tools/" + pathName + "/#"
	seen := make(map[string]struct{})
	var subs []string

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := attr(n, "href"); ok {
				if i := strings.Index(href, relPrefix); i >= 0 {
					sub := href[i+len(relPrefix):]
					if domain.ValidPackageName(sub) && sub != primary {
						if _, dup := seen[sub]; !dup {
							seen[sub] = struct{}{}
							subs = append(subs, sub)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return subs
}

// forEachDefinition invokes fn for every <dt>/<dd> pair inside a <dl>.
func forEachDefinition(doc *html.Node, fn func(label string, dd *html.Node)) {
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "dl" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || c.Data != "dt" {
					continue
				}
				dd := nextElement(c)
				if dd == nil || dd.Data != "dd" {
					continue
				}
				label := strings.ToLower(strings.TrimSpace(textContent(c)))
				fn(label, dd)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
}

// definitionValues pulls tag values from a <dd>: anchor texts when present,
// otherwise the text split on commas and semicolons.
func definitionValues(dd *html.Node) []string {
	var values []string
	var anchors func(*html.Node)
	anchors = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if text := strings.TrimSpace(textContent(n)); text != "" {
				values = append(values, strings.ToLower(text))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			anchors(c)
		}
	}
	anchors(dd)
	if len(values) > 0 {
		return values
	}
	raw := textContent(dd)
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, strings.ToLower(part))
		}
	}
	return values
}

func firstAnchorHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		if href, ok := attr(n, "href"); ok {
			return strings.TrimSpace(href)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := firstAnchorHref(c); href != "" {
			return href
		}
	}
	return ""
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.TrimSpace(sb.String())
}
