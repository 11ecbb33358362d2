package action

import (
	"strings"

	"github.com/flarebyte/clipper/internal/coerce"
)

func init() {
	Register("split", buildSplit)
	Register("trueFalse", buildTrueFalse)
	Register("replace", buildReplace)
	Register("strip", buildStrip)
	Register("merge", buildMerge(false))
	Register("r_merge", buildMerge(true))
}

func asString(v any) string { return coerce.Format(v) }

func buildSplit(p Params) (Func, []string, error) {
	sep, err := p.String("sep")
	if err != nil {
		return nil, nil, err
	}
	if sep == "" {
		return nil, nil, paramError("split separator is empty")
	}
	index, err := p.Int("index")
	if err != nil {
		return nil, nil, err
	}
	return func(v any, _ Env) (any, error) {
		parts := strings.Split(asString(v), sep)
		i := index
		if i < 0 {
			i += len(parts)
		}
		if i < 0 || i >= len(parts) {
			return nil, paramError("split index %d out of range (%d parts)", index, len(parts))
		}
		return parts[i], nil
	}, nil, nil
}

func buildTrueFalse(p Params) (Func, []string, error) {
	var (
		mode  string
		value string
		found int
	)
	for _, k := range []string{"compare", "contains", "contains_nocase"} {
		s, ok, err := p.OptString(k)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			mode, value = k, s
			found++
		}
	}
	if found != 1 {
		return nil, nil, paramError("trueFalse needs exactly one of compare, contains, contains_nocase (got %d)", found)
	}
	return func(v any, _ Env) (any, error) {
		s := asString(v)
		switch mode {
		case "compare":
			return s == value, nil
		case "contains":
			return strings.Contains(s, value), nil
		default:
			return strings.Contains(strings.ToLower(s), strings.ToLower(value)), nil
		}
	}, nil, nil
}

type replacement struct{ from, to string }

func replacementOf(p Params) (replacement, error) {
	from, err := p.String("from")
	if err != nil {
		return replacement{}, err
	}
	if from == "" {
		return replacement{}, paramError("replace needs a non-empty from")
	}
	to, _, err := p.OptString("to")
	if err != nil {
		return replacement{}, err
	}
	return replacement{from: from, to: to}, nil
}

func buildReplace(p Params) (Func, []string, error) {
	var rs []replacement
	if items, ok := p.List(); ok {
		for _, it := range items {
			r, err := replacementOf(it)
			if err != nil {
				return nil, nil, err
			}
			rs = append(rs, r)
		}
	} else {
		r, err := replacementOf(p)
		if err != nil {
			return nil, nil, err
		}
		rs = append(rs, r)
	}
	return func(v any, _ Env) (any, error) {
		s := asString(v)
		for _, r := range rs {
			s = strings.ReplaceAll(s, r.from, r.to)
		}
		return s, nil
	}, nil, nil
}

func buildStrip(Params) (Func, []string, error) {
	return func(v any, _ Env) (any, error) {
		return strings.TrimSpace(asString(v)), nil
	}, nil, nil
}

// buildMerge joins the value with another field or a literal. The reversed
// form puts the other value first and keeps only its first word.
func buildMerge(reversed bool) Builder {
	return func(p Params) (Func, []string, error) {
		withVar, hasVar, err := p.OptString("with_var")
		if err != nil {
			return nil, nil, err
		}
		withValue, _, err := p.OptString("with_value")
		if err != nil {
			return nil, nil, err
		}
		sep, _, err := p.OptString("sep")
		if err != nil {
			return nil, nil, err
		}
		var reads []string
		if hasVar {
			reads = []string{withVar}
		}
		return func(v any, env Env) (any, error) {
			other := withValue
			if hasVar {
				other = ""
				if ov, ok := env.Lookup(withVar); ok {
					other = asString(ov)
				}
				if reversed {
					other = strings.Split(other, " ")[0]
				}
			}
			if reversed {
				return other + sep + asString(v), nil
			}
			return asString(v) + sep + other, nil
		}, reads, nil
	}
}
