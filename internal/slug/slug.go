// Package slug derives URL-safe article identifiers from generated titles.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxLength is the longest normalized slug, excluding the uniqueness suffix
const MaxLength = 80

// fallback is used when a seed normalizes to nothing
const fallback = "article"

var (
	// Whitespace includes Unicode separators such as NBSP and em-space, not only ASCII.
	disallowed = regexp.MustCompile(`[^a-z0-9\s\v\p{Z}\x{FEFF}-]`)
	whitespace = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	dashes     = regexp.MustCompile(`-+`)
)

// Normalize lower-cases s, drops characters outside [a-z0-9 whitespace -],
// turns whitespace runs into single dashes, collapses dash runs, trims dashes
// from both ends and truncates to MaxLength. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = dashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		// Only ASCII remains, so byte truncation is safe.
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// Allocator appends a time-derived suffix to normalized seeds. The suffix is the
// base-36 Unix millisecond clock, which makes collisions unlikely without a
// uniqueness query. The articles.slug unique constraint is the backstop.
type Allocator struct {
	now func() time.Time
}

// NewAllocator creates an Allocator using the wall clock
func NewAllocator() *Allocator {
	return &Allocator{now: time.Now}
}

// NewAllocatorWithClock creates an Allocator with an injected clock
func NewAllocatorWithClock(now func() time.Time) *Allocator {
	return &Allocator{now: now}
}

// Allocate returns Normalize(seed) plus a "-<base36 millis>" suffix
func (a *Allocator) Allocate(seed string) string {
	base := Normalize(seed)
	if base == "" {
		base = fallback
	}
	return base + "-" + Suffix(a.now())
}

// Suffix encodes t as base-36 Unix milliseconds
func Suffix(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 36)
}

// Seed picks the slug seed for a generated article: the suggested slug when it
// survives normalization, otherwise the title.
func Seed(suggested, title string) string {
	if Normalize(suggested) != "" {
		return suggested
	}
	return title
}
