package rules

import (
	"errors"
	"fmt"

	"github.com/flarebyte/clipper/internal/action"
	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/extract"
	"github.com/flarebyte/clipper/internal/fault"
)

// build validates decoded documents and compiles them into a RuleSet. All
// problems are reported together.
func build(docs []document) (*RuleSet, error) {
	rs := &RuleSet{index: make(map[string]int, len(docs))}
	var errs []error
	for _, d := range docs {
		if _, dup := rs.index[d.Name]; dup {
			errs = append(errs, fieldErr(d.Name, "declared more than once"))
			continue
		}
		f, err := compileField(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rs.index[f.Name] = len(rs.fields)
		rs.fields = append(rs.fields, f)
	}
	if len(errs) == 0 {
		errs = checkSources(rs)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rs, nil
}

func fieldErr(name, format string, args ...any) error {
	return fmt.Errorf("%w: field %q: %s", fault.ErrConfig, name, fmt.Sprintf(format, args...))
}

func compileField(d document) (*Field, error) {
	b := d.Body
	if d.Name == "" {
		return nil, fieldErr(d.Name, "empty field name")
	}
	if b.Source == "" {
		return nil, fieldErr(d.Name, "missing source")
	}
	if b.Type == "" {
		return nil, fieldErr(d.Name, "missing type")
	}
	if b.BegPairs == nil || b.EndPairs == nil {
		return nil, fieldErr(d.Name, "missing begPairs or endPairs")
	}
	t, err := coerce.ParseType(b.Type)
	if err != nil {
		return nil, fieldErr(d.Name, "%v", err)
	}
	pairs, err := compilePairs(*b.BegPairs, *b.EndPairs, b.BegIndexs)
	if err != nil {
		return nil, fieldErr(d.Name, "%v", err)
	}
	steps := make([]action.Step, 0, len(d.Actions))
	for _, a := range d.Actions {
		s, err := action.Compile(a.Name, a.Params)
		if err != nil {
			return nil, fieldErr(d.Name, "%v", err)
		}
		steps = append(steps, s)
	}
	return &Field{
		Name:     d.Name,
		Source:   b.Source,
		Type:     t,
		Pairs:    pairs,
		Actions:  steps,
		Deferred: b.ParseInTheEnd,
		Delete:   b.Delete,
	}, nil
}

func compilePairs(beg, end []markerDoc, idx []int) ([]extract.Pair, error) {
	if len(beg) != len(end) {
		return nil, fmt.Errorf("begPairs has %d entries, endPairs has %d", len(beg), len(end))
	}
	if idx != nil && len(idx) != len(beg) {
		return nil, fmt.Errorf("begIndexs has %d entries, begPairs has %d", len(idx), len(beg))
	}
	pairs := make([]extract.Pair, len(beg))
	for i := range beg {
		occ := 1
		if idx != nil {
			occ = idx[i]
		}
		if occ < 1 {
			return nil, fmt.Errorf("pair %d: occurrence %d must be >= 1", i+1, occ)
		}
		b, e := extract.Marker(beg[i]), extract.Marker(end[i])
		if b.Empty() || e.Empty() {
			return nil, fmt.Errorf("pair %d: marker has no non-empty alternative", i+1)
		}
		pairs[i] = extract.Pair{Beg: b, End: e, Occurrence: occ}
	}
	return pairs, nil
}

// checkSources enforces resolution order: a non-deferred field reads the raw
// content or an earlier non-deferred field; a deferred field reads any
// non-deferred field or an earlier deferred one.
func checkSources(rs *RuleSet) []error {
	var errs []error
	for i, f := range rs.fields {
		if f.FromRaw() {
			continue
		}
		j, ok := rs.index[f.Source]
		switch {
		case !ok:
			errs = append(errs, fieldErr(f.Name, "unknown source %q", f.Source))
		case j == i:
			errs = append(errs, fieldErr(f.Name, "source refers to itself"))
		case !f.Deferred && rs.fields[j].Deferred:
			errs = append(errs, fieldErr(f.Name, "source %q is resolved in the end", f.Source))
		case !f.Deferred && j > i:
			errs = append(errs, fieldErr(f.Name, "source %q is declared later", f.Source))
		case f.Deferred && rs.fields[j].Deferred && j > i:
			errs = append(errs, fieldErr(f.Name, "source %q is declared later", f.Source))
		}
	}
	return errs
}
