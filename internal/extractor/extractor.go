// Package extractor builds bag-of-words contexts from fixed-radius windows
// around every occurrence of a surface form.
package extractor

import (
	"fmt"
	"regexp"

	"github.com/gcbaptista/go-entity-linker/internal/tokenizer"
)

// Context maps a term to its frequency (or, after TF-IDF, its weight).
type Context map[string]float64

// MissingWarning is the warning recorded when a surface form does not occur in the text.
func MissingWarning(surfaceForm string) string {
	return fmt.Sprintf("Number of chunks for %s is less than 2", surfaceForm)
}

// Split cuts the normalized text on every occurrence of surfaceForm delimited by
// non-word characters. The delimiting characters are consumed by the match, so
// two occurrences separated by a single space yield only the first one.
func Split(nText, surfaceForm string) []string {
	pattern := regexp.MustCompile(`[^\p{L}\p{M}\p{N}_]` + regexp.QuoteMeta(surfaceForm) + `[^\p{L}\p{M}\p{N}_]`)
	return pattern.Split(" "+nText+" ", -1)
}

// Extract returns the cumulative term frequencies of up to neighbors tokens on
// each side of every occurrence of surfaceForm in nText.
//
// Tokens after an occurrence that fall outside its window become the "before"
// pool of the next occurrence, so no token is counted twice. ok is false when
// the surface form does not occur at all; the context is then empty.
func Extract(nText, surfaceForm string, neighbors int) (ctx Context, ok bool) {
	ctx = make(Context)
	if surfaceForm == "" || nText == "" {
		return ctx, false
	}

	chunks := Split(nText, surfaceForm)
	if len(chunks) < 2 {
		return ctx, false
	}

	before := tokenizer.Tokenize(chunks[0])
	for _, chunk := range chunks[1:] {
		for b, c := len(before)-1, 0; b >= 0 && c < neighbors; b, c = b-1, c+1 {
			ctx[before[b]]++
		}

		after := tokenizer.Tokenize(chunk)
		a := 0
		for ; a < len(after) && a < neighbors; a++ {
			ctx[after[a]]++
		}
		before = after[a:]
	}
	return ctx, true
}
