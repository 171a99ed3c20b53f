package domain

const (
	DefaultBaseURL            = "https://www.kali.org"
	DefaultIndexPath          = "/tools/all-tools/"
	DefaultUserAgent          = "kalitools/0.1"
	DefaultRequestDelayMillis = 200
	DefaultFetchTimeoutSecs   = 15
	DefaultRetryAttempts      = 3
	DefaultRetryBaseMillis    = 500
	DefaultRetryMaxMillis     = 5000
	DefaultStateTTLSeconds    = 30
	DefaultLinkCacheTTLHours  = 168
	DefaultQueryTimeoutSecs   = 15
	DefaultInstallTimeoutSecs = 0 // rely on apt's own timeouts
)

// CategoryUnknown is the sentinel for tools whose category could not be
// determined from the tool page or any local hint.
const CategoryUnknown = "other"

// ToolSource tags where a catalog entry came from. Merge precedence depends
// on it: scrape-sourced fields are authoritative, meta-scan entries are
// additive only, user entries are never overwritten by discovery.
type ToolSource string

const (
	SourceScrape ToolSource = "scrape"
	SourceMeta   ToolSource = "meta"
	SourceUser   ToolSource = "user"
)

// MetaPackageRoots are the kali meta-packages whose dependency closure seeds
// the local meta-package scan.
var MetaPackageRoots = []string{
	"kali-linux-top10",
	"kali-linux-default",
}

// MetaScanDenyPrefixes filters library-style packages out of meta-scan
// results.
var MetaScanDenyPrefixes = []string{
	"lib",
	"python",
	"fonts-",
	"firmware-",
	"linux-headers-",
}
