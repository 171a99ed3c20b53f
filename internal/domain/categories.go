package domain

import "strings"

// categoryKeywords maps tag keywords seen on tool pages to coarse catalog
// categories.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"web", "web"},
	{"crawler", "web"},
	{"http", "web"},
	{"recon", "recon"},
	{"enumeration", "recon"},
	{"wireless", "wireless"},
	{"wifi", "wireless"},
	{"forensics", "forensics"},
	{"memory", "forensics"},
	{"exploitation", "exploitation"},
	{"exploit", "exploitation"},
	{"password", "password"},
	{"cracking", "password"},
	{"bruteforce", "password"},
	{"sniffing", "sniffing"},
	{"capture", "sniffing"},
	{"reverse", "reverse"},
	{"phishing", "social"},
	{"social", "social"},
	{"database", "database"},
	{"sql", "database"},
}

// CategoryFromTags maps the first recognizable tag to a category. Tags that
// match nothing yield the unknown sentinel when any tags were present, and
// the empty string when none were.
func CategoryFromTags(tags []string) string {
	for _, tag := range tags {
		tag = strings.ToLower(tag)
		for _, m := range categoryKeywords {
			if strings.Contains(tag, m.keyword) {
				return m.category
			}
		}
	}
	if len(tags) > 0 {
		return CategoryUnknown
	}
	return ""
}
