// Package rules holds the declarative field rules of one run. A RuleSet is
// loaded once and then shared read-only by every parser.
package rules

import (
	"fmt"

	"github.com/flarebyte/clipper/internal/action"
	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/extract"
)

// RawContent is the source name that refers to the whole input text.
const RawContent = "scontext"

// Field describes how one output value is located, transformed and typed.
type Field struct {
	Name   string
	Source string
	Type   coerce.Type
	Pairs  []extract.Pair
	// Actions run in declaration order before coercion.
	Actions []action.Step
	// Deferred fields are resolved after all other fields.
	Deferred bool
	// Delete keeps the field available to other fields but out of the output.
	Delete bool
}

// FromRaw reports whether the field clips the input text directly.
func (f *Field) FromRaw() bool { return f.Source == RawContent }

// Reads returns the names of the fields f depends on: its source and the
// fields its actions look up.
func (f *Field) Reads() []string {
	var out []string
	if !f.FromRaw() {
		out = append(out, f.Source)
	}
	for _, s := range f.Actions {
		out = append(out, s.Reads...)
	}
	return out
}

// RuleSet is an ordered collection of fields.
type RuleSet struct {
	fields []*Field
	index  map[string]int
}

// Fields returns the fields in declaration order.
func (rs *RuleSet) Fields() []*Field { return rs.fields }

// Len returns the number of fields.
func (rs *RuleSet) Len() int { return len(rs.fields) }

// Field returns the named field.
func (rs *RuleSet) Field(name string) (*Field, bool) {
	i, ok := rs.index[name]
	if !ok {
		return nil, false
	}
	return rs.fields[i], true
}

// Index returns the declaration position of name, or -1.
func (rs *RuleSet) Index(name string) int {
	i, ok := rs.index[name]
	if !ok {
		return -1
	}
	return i
}

// Columns returns the output column names: every field not marked for
// deletion, in declaration order.
func (rs *RuleSet) Columns() []string {
	out := make([]string, 0, len(rs.fields))
	for _, f := range rs.fields {
		if !f.Delete {
			out = append(out, f.Name)
		}
	}
	return out
}

// Closure returns names plus every field they transitively read. Reads of
// undeclared fields are ignored; they fail at parse time instead.
func (rs *RuleSet) Closure(names []string) (map[string]bool, error) {
	out := make(map[string]bool, len(names))
	stack := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := rs.index[n]; !ok {
			return nil, fmt.Errorf("unknown field %q", n)
		}
		stack = append(stack, n)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[n] {
			continue
		}
		out[n] = true
		f, _ := rs.Field(n)
		for _, dep := range f.Reads() {
			if _, ok := rs.index[dep]; ok && !out[dep] {
				stack = append(stack, dep)
			}
		}
	}
	return out, nil
}
