package apt

import (
	"strings"

	"kalitools/internal/domain"
)

// Classify maps apt-get diagnostic output to an error code. Matching is
// against lowercased output, so casing differences across apt versions do
// not matter.
func Classify(output string, exitCode int) domain.ErrorCode {
	if exitCode == 0 {
		return ""
	}
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "are you root"),
		strings.Contains(lower, "a password is required"):
		return domain.CodePermissionDenied
	case strings.Contains(lower, "unmet dependencies"),
		strings.Contains(lower, "pkgproblemresolver"),
		strings.Contains(lower, "held broken packages"):
		return domain.CodeDependencyConflict
	case strings.Contains(lower, "unable to locate package"),
		strings.Contains(lower, "has no installation candidate"):
		return domain.CodePackageNotFound
	case strings.Contains(lower, "could not resolve"),
		strings.Contains(lower, "temporary failure resolving"),
		strings.Contains(lower, "failed to fetch"):
		return domain.CodeNetworkUnavailable
	default:
		return domain.CodeUnknown
	}
}
