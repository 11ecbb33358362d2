package extract

import (
	"fmt"
	"strings"

	"github.com/flarebyte/clipper/internal/fault"
)

// Clip narrows src.Text through pairs in order and returns the final window.
// A nil cache disables memoization without changing the outcome.
func Clip(src Source, pairs []Pair, cache *Cache) (string, error) {
	lo, hi := 0, len(src.Text)
	for i, p := range pairs {
		var err error
		lo, hi, err = clipPair(src, lo, hi, i, p, cache)
		if err != nil {
			return "", err
		}
	}
	return src.Text[lo:hi], nil
}

// Step describes the window produced by one pair.
type Step struct {
	Pair       int    `json:"pair"`
	Begin      string `json:"begin"`
	End        string `json:"end"`
	Occurrence int    `json:"occurrence"`
	Start      int    `json:"start"`
	Stop       int    `json:"stop"`
	Window     string `json:"window"`
}

// Trace runs the same algorithm as Clip and reports every intermediate
// window. On failure the steps completed so far are returned with the error.
func Trace(src Source, pairs []Pair) ([]Step, error) {
	steps := make([]Step, 0, len(pairs))
	lo, hi := 0, len(src.Text)
	for i, p := range pairs {
		var err error
		lo, hi, err = clipPair(src, lo, hi, i, p, nil)
		if err != nil {
			return steps, err
		}
		steps = append(steps, Step{
			Pair:       i + 1,
			Begin:      p.Beg.String(),
			End:        p.End.String(),
			Occurrence: p.occurrence(),
			Start:      lo,
			Stop:       hi,
			Window:     src.Text[lo:hi],
		})
	}
	return steps, nil
}

func clipPair(src Source, lo, hi, i int, p Pair, cache *Cache) (int, int, error) {
	bpos, bsize, err := cache.locate(src, lo, hi, p.Beg, p.occurrence())
	if err != nil {
		return 0, 0, fmt.Errorf("pair %d begin %s: %w", i+1, p.Beg, err)
	}
	start := bpos + bsize
	// The end marker is the first one after the begin match.
	epos, _, err := cache.locate(src, start, hi, p.End, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("pair %d end %s: %w", i+1, p.End, err)
	}
	return start, epos, nil
}

// locate returns the absolute position and length of the n-th occurrence of
// the winning alternative of m inside text[lo:hi].
func locate(text string, lo, hi int, m Marker, n int) (int, int, error) {
	w := text[lo:hi]
	best := -1
	win := ""
	for _, alt := range m {
		if alt == "" {
			continue
		}
		p := strings.Index(w, alt)
		if p >= 0 && (best < 0 || p < best) {
			best, win = p, alt
		}
	}
	if best < 0 {
		return 0, 0, fault.ErrMarkerNotFound
	}
	pos := best
	for k := 1; k < n; k++ {
		next := strings.Index(w[pos+1:], win)
		if next < 0 {
			return 0, 0, fmt.Errorf("%w: %q occurs %d time(s), wanted #%d", fault.ErrOccurrenceOutOfRange, win, k, n)
		}
		pos += 1 + next
	}
	return lo + pos, len(win), nil
}
