// Package tokenizer normalizes lesson text into search tokens. It strips
// HTML markup, lower-cases, and splits on non-word characters. There is
// deliberately no stemming, stop-word removal, or accent folding: ranking
// relies on raw token equality between indexed text and queries.
package tokenizer

import (
	"regexp"
	"strings"
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	nonWordPattern = regexp.MustCompile(`[^\w\s]`)
)

// Tokenize breaks text into lowercase word tokens. Callers index tokens by
// position, so the result is a materialized slice rather than a stream.
func Tokenize(text string) []string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = nonWordPattern.ReplaceAllString(text, " ")
	return strings.Fields(strings.ToLower(text))
}
