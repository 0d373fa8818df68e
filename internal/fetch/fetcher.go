// Package fetch implements the research capability: turning a URL into
// plain text content.
package fetch

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrEmptyContent is returned when a fetch succeeds but yields no text.
// Callers treat it like any other failure.
var ErrEmptyContent = errors.New("fetch: empty content")

// Fetcher retrieves the textual content behind a URL.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

func nonEmpty(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyContent
	}
	return s, nil
}
