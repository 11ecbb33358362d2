package action

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/fault"
)

func init() {
	Register("findMaxPattern", buildFindPattern(true))
	Register("findMinPattern", buildFindPattern(false))
	Register("delta", buildDelta)
}

// buildFindPattern scans the original extracted text, not the current value.
// When the pattern has a capture group, the first group is the number.
func buildFindPattern(wantMax bool) Builder {
	return func(p Params) (Func, []string, error) {
		pattern, err := p.String("pattern")
		if err != nil {
			return nil, nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, nil, paramError("invalid pattern %q: %v", pattern, err)
		}
		return func(_ any, env Env) (any, error) {
			matches := re.FindAllStringSubmatch(env.Original(), -1)
			if len(matches) == 0 {
				return nil, paramError("no matches for %q", pattern)
			}
			var best float64
			for i, m := range matches {
				s := m[0]
				if len(m) > 1 {
					s = m[1]
				}
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, paramError("match %q is not a number", s)
				}
				if i == 0 || (wantMax && f > best) || (!wantMax && f < best) {
					best = f
				}
			}
			return strconv.FormatFloat(best, 'f', -1, 64), nil
		}, nil, nil
	}
}

func buildDelta(p Params) (Func, []string, error) {
	key := "fromKeys"
	if !p.Has(key) {
		key = "from_keys"
	}
	keys, err := p.Strings(key)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) != 2 {
		return nil, nil, paramError("delta needs exactly two keys, got %d", len(keys))
	}
	a, b := keys[0], keys[1]
	return func(_ any, env Env) (any, error) {
		va, ok := env.Lookup(a)
		if !ok {
			return nil, fmt.Errorf("%w: %q", fault.ErrMissingSourceField, a)
		}
		vb, ok := env.Lookup(b)
		if !ok {
			return nil, fmt.Errorf("%w: %q", fault.ErrMissingSourceField, b)
		}
		return subtract(va, vb)
	}, []string{a, b}, nil
}

// subtract returns a-b. Datetimes give the difference in seconds.
func subtract(a, b any) (any, error) {
	ta, aTime := a.(time.Time)
	tb, bTime := b.(time.Time)
	if aTime && bTime {
		return ta.Sub(tb).Seconds(), nil
	}
	fa, err := coerce.Coerce(a, coerce.Float)
	if err != nil {
		return nil, paramError("delta operand %q is not numeric", coerce.Format(a))
	}
	fb, err := coerce.Coerce(b, coerce.Float)
	if err != nil {
		return nil, paramError("delta operand %q is not numeric", coerce.Format(b))
	}
	return fa.(float64) - fb.(float64), nil
}
