// Package tokenizer turns raw document text into index terms. Text is split
// on whitespace; each token is lower-cased and stripped of any leading or
// trailing run of '.' and ','. There is no stemming and no stop-word list.
package tokenizer

import (
	"strings"
)

const edgePunct = ".,"

// Normalize splits text on whitespace and returns the normalized term of every
// token in order, duplicates included.
func Normalize(text string) []string {
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		terms = append(terms, NormalizeTerm(word))
	}
	return terms
}

// NormalizeTerm normalizes a single raw token. A token made only of '.' and
// ',' becomes the empty string.
func NormalizeTerm(word string) string {
	word = strings.TrimSpace(word)
	word = strings.ToLower(word)
	return strings.Trim(word, edgePunct)
}
