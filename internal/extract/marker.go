// Package extract implements sequential clipping: a field value is located by
// narrowing a window through an ordered list of begin/end marker pairs.
package extract

import (
	"strconv"
	"strings"
)

// Marker is a set of alternative literal strings. The alternative found
// earliest in the window wins; listing order breaks ties.
type Marker []string

// Single returns a marker with one alternative.
func Single(s string) Marker { return Marker{s} }

// Empty reports whether the marker has no usable alternative.
func (m Marker) Empty() bool {
	for _, alt := range m {
		if alt != "" {
			return false
		}
	}
	return true
}

func (m Marker) String() string {
	if len(m) == 1 {
		return strconv.Quote(m[0])
	}
	q := make([]string, len(m))
	for i, alt := range m {
		q[i] = strconv.Quote(alt)
	}
	return "[" + strings.Join(q, ",") + "]"
}

func (m Marker) key() string { return strings.Join(m, "\x00") }

// Pair clips the text between Beg and End. Occurrence selects which match of
// Beg is used (1-based); zero means 1.
type Pair struct {
	Beg        Marker
	End        Marker
	Occurrence int
}

func (p Pair) occurrence() int {
	if p.Occurrence < 1 {
		return 1
	}
	return p.Occurrence
}

// Source is the text a field is clipped from. ID must be unique among the
// sources of one parse; it scopes cache entries.
type Source struct {
	ID   int
	Text string
}
