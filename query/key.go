package query

import (
	"slices"
	"strings"

	"github.com/poiesic/docsift/core"
)

// Key is the canonical cache key of a query.
type Key uint64

// Canonical returns the sorted, de-duplicated terms of q joined by spaces.
func Canonical(q string) string {
	terms := Terms(q)
	slices.Sort(terms)
	return strings.Join(slices.Compact(terms), " ")
}

// KeyOf hashes the canonical form of q.
func KeyOf(q string) Key {
	return Key(core.IDFromContent(Canonical(q)))
}
