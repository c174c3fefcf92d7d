// Package tokenizer normalizes input text, parses [[...]] mention markup and
// splits text chunks into context tokens.
package tokenizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// spaceControlRegex matches runs of separator and control characters.
var spaceControlRegex = regexp.MustCompile(`[\p{Z}\p{C}]+`)

// nonWordRegex matches runs of characters that cannot be part of a word.
var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_]+`)

// markupRegex captures the inner text of [[...]] mention markup.
var markupRegex = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// pipedMarkupRegex rewrites [[target|surface form]] into [[surface form]].
var pipedMarkupRegex = regexp.MustCompile(`\[\[(?:[^|\]]*\|)?([^\]]+)\]\]`)

// Normalize composes the text into NFC, lowercases it and collapses separator
// and control characters into single spaces.
func Normalize(text string) string {
	lower := strings.ToLower(norm.NFC.String(text))
	return strings.TrimSpace(spaceControlRegex.ReplaceAllString(lower, " "))
}

// Purify strips apostrophes and punctuation from a chunk and collapses its spacing.
func Purify(chunk string) string {
	chunk = strings.ReplaceAll(chunk, "'", "")
	chunk = nonWordRegex.ReplaceAllString(chunk, " ")
	return strings.TrimSpace(spaceControlRegex.ReplaceAllString(chunk, " "))
}

// Tokenize purifies a chunk and splits it into its non-empty tokens.
func Tokenize(chunk string) []string {
	split := strings.Split(Purify(chunk), " ")

	tokens := make([]string, 0, len(split)) // Initialize as empty slice, not nil
	for _, s := range split {
		if s != "" {
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// ParseMarkup extracts the surface forms marked with [[...]] in order of
// appearance and returns the text with the brackets replaced by spaces.
// Piped markup keeps only the part after the pipe.
func ParseMarkup(text string) (surfaceForms []string, plain string) {
	text = pipedMarkupRegex.ReplaceAllString(text, "[[$1]]")

	for _, match := range markupRegex.FindAllStringSubmatch(text, -1) {
		surfaceForms = append(surfaceForms, match[1])
	}
	plain = markupRegex.ReplaceAllString(text, " $1 ")
	return surfaceForms, plain
}

// HasMarkup reports whether the text carries at least one [[...]] mention.
func HasMarkup(text string) bool {
	return markupRegex.MatchString(text)
}

// SurfaceForms normalizes raw surface forms, removes empty entries and duplicates
// while keeping first-seen order, and keeps at most max forms. It returns the
// number of distinct forms that did not fit.
func SurfaceForms(raw []string, max int) (forms []string, dropped int) {
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		sf := Normalize(r)
		if sf == "" {
			continue
		}
		if _, ok := seen[sf]; ok {
			continue
		}
		seen[sf] = struct{}{}
		if len(forms) >= max {
			dropped++
			continue
		}
		forms = append(forms, sf)
	}
	return forms, dropped
}
