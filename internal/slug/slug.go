// Package slug derives URL-safe anchor identifiers from heading text.
//
// Every renderer that emits heading anchors (the heading extractor, the
// tree viewer and the Markdown HTML renderer) goes through this package so
// one document always yields the same anchors.
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^\w\s\p{Zs}-]`)
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	hyphenRuns = regexp.MustCompile(`-+`)
)

// Slugify lowercases text, drops everything except ASCII word characters,
// whitespace and hyphens, turns whitespace runs into single hyphens and trims
// hyphens from both ends. Unicode space separators such as U+00A0 count as
// whitespace.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Counter deduplicates slugs within one traversal. Create a fresh Counter per
// extraction or render call; it is not safe for concurrent use.
type Counter struct {
	seen map[string]int
}

func NewCounter() *Counter {
	return &Counter{seen: make(map[string]int)}
}

// Unique returns base on its first occurrence and base-N on the Nth.
func (c *Counter) Unique(base string) string {
	c.seen[base]++
	n := c.seen[base]
	if n == 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Next slugifies text and deduplicates the result.
func (c *Counter) Next(text string) string {
	return c.Unique(Slugify(text))
}
