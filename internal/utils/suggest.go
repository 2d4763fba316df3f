package utils

import "github.com/agnivade/levenshtein"

// maxSuggestionDistance is the maximum edit distance for a name to be suggested.
const maxSuggestionDistance = 3

// ClosestName returns the candidate closest to name by edit distance, or "" if none is close enough.
// Ties are broken by the order of candidates.
func ClosestName(name string, candidates []string) string {
	best, bestDist := "", maxSuggestionDistance+1
	for _, candidate := range candidates {
		dist := levenshtein.ComputeDistance(name, candidate)
		if dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best
}

// DidYouMean returns a " (did you mean %q?)" suffix for error messages, or "" if there is no close candidate.
func DidYouMean(name string, candidates []string) string {
	if best := ClosestName(name, candidates); best != "" {
		return " (did you mean \"" + best + "\"?)"
	}
	return ""
}
