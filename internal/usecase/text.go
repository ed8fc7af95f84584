package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// DefaultFuzzyThreshold is the word similarity FuzzyContains uses when callers
// have no stronger opinion.
const DefaultFuzzyThreshold = 80

// minFuzzyWordLength is the shortest needle word considered for word-level
// fuzzy matching. Shorter words match too much by accident.
const minFuzzyWordLength = 3

// Normalize lowercases s, strips everything except a-z, 0-9 and whitespace,
// collapses whitespace runs to a single space and trims the result.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	result := nonAlphanumericRegex.ReplaceAllString(strings.ToLower(s), "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// Similarity returns how alike two strings are on a 0-100 scale, based on
// their Levenshtein distance relative to the longer string. Two empty strings
// are identical.
func Similarity(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 100
	}
	distance := levenshteinDistance(ra, rb)
	return 100 * (maxLen - distance) / maxLen
}

// levenshteinDistance calculates the edit distance between two rune slices
func levenshteinDistance(r1, r2 []rune) int {
	m := len(r1)
	n := len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// FuzzyContains reports whether haystack contains needle, either as a literal
// substring after normalization or because some needle word (3+ chars) is at
// least threshold-similar to some haystack word. An empty needle is never
// contained.
func FuzzyContains(haystack, needle string, threshold int) bool {
	h := Normalize(haystack)
	n := Normalize(needle)
	if n == "" || h == "" {
		return false
	}

	if strings.Contains(h, n) {
		return true
	}

	haystackWords := strings.Fields(h)
	for _, needleWord := range strings.Fields(n) {
		if len(needleWord) < minFuzzyWordLength {
			continue
		}
		for _, haystackWord := range haystackWords {
			if Similarity(needleWord, haystackWord) >= threshold {
				return true
			}
		}
	}

	return false
}
