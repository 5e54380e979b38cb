package match

import (
	"sort"
	"strings"
)

// DerivePrefix extracts the longest static prefix from a glob pattern:
// the portion before the first glob metacharacter, truncated to the last
// complete path segment. The prefix scopes source List calls so fewer
// keys need to be fetched and evaluated.
//
// Examples:
//
//	"taillard/os10x10/**/*.txt" → "taillard/os10x10/"
//	"*.txt"                     → ""
//	"bench/tai{10,20}*.txt"     → "bench/"
//	"exact/path/tai44.txt"      → "exact/path/tai44.txt"
func DerivePrefix(pattern string) string {
	if pattern == "" {
		return ""
	}

	metaIdx := strings.IndexAny(pattern, "*?[{")
	if metaIdx == -1 {
		// No metacharacters: the pattern is an exact key.
		return pattern
	}
	if metaIdx == 0 {
		return ""
	}

	prefix := pattern[:metaIdx]

	// Truncate to the last complete path segment so a partial segment
	// like "bench/tai1" does not over-narrow the listing.
	lastSlash := strings.LastIndex(prefix, "/")
	if lastSlash >= 0 {
		return prefix[:lastSlash+1]
	}
	return ""
}

// DerivePrefixes derives, deduplicates, and sorts the static prefixes of
// multiple patterns. A parent prefix subsumes its children; an empty
// prefix (full listing required) subsumes everything.
func DerivePrefixes(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}

	prefixes := make([]string, 0, len(patterns))
	for _, p := range patterns {
		prefixes = append(prefixes, DerivePrefix(p))
	}
	return deduplicatePrefixes(prefixes)
}

func deduplicatePrefixes(prefixes []string) []string {
	for _, p := range prefixes {
		if p == "" {
			return []string{""}
		}
	}

	// Shortest first so subsumption checks see parents before children.
	sorted := make([]string, len(prefixes))
	copy(sorted, prefixes)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i]) < len(sorted[j])
	})

	result := make([]string, 0, len(sorted))
	for _, candidate := range sorted {
		subsumed := false
		for _, existing := range result {
			if strings.HasPrefix(candidate, existing) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			result = append(result, candidate)
		}
	}

	sort.Strings(result)
	return result
}

// IsGlobPattern reports whether the pattern contains glob metacharacters.
func IsGlobPattern(pattern string) bool {
	return strings.IndexAny(pattern, "*?[{") != -1
}
