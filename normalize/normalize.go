// Package normalize turns raw feed text into single-line display text.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxSummaryLength is the number of characters kept before truncation.
	MaxSummaryLength = 1024
	ellipsis         = " ..."
	edgeCutset       = "[]<>"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Summary cleans a raw feed summary: entities are decoded, whitespace runs
// collapsed, tags removed, bracket characters trimmed from both edges and the
// result truncated to MaxSummaryLength characters.
func Summary(raw string) string {
	text := html.UnescapeString(raw)
	text = strings.Join(strings.Fields(text), " ")
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.Trim(text, edgeCutset)
	return truncate(text, MaxSummaryLength)
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + ellipsis
}
