package ui

import (
	"sort"
	"strings"
)

const (
	// maxSuggestionDistance is the largest edit distance still offered as a suggestion
	maxSuggestionDistance = 3
	// maxSuggestions caps how many candidates a did-you-mean line offers
	maxSuggestions = 3
)

// Suggest returns up to three candidates within edit distance three of the
// target, closest first. Matching is case-insensitive; candidates keep their
// original spelling in the result.
func Suggest(target string, candidates []string) []string {
	type scored struct {
		value    string
		distance int
	}

	var matches []scored
	lowered := strings.ToLower(target)

	for _, candidate := range candidates {
		dist := levenshtein(lowered, strings.ToLower(candidate))
		if dist <= maxSuggestionDistance {
			matches = append(matches, scored{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		result = append(result, matches[i].value)
	}

	return result
}

// levenshtein returns the minimum number of single-character edits
// (insertions, deletions, substitutions) between two strings.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Two-row rolling computation keeps memory proportional to one string.
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)

	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
