// Package action implements the named transforms applied to an extracted
// value, in declaration order, before type coercion.
package action

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flarebyte/clipper/internal/fault"
)

// Env gives an action access to the record being built.
type Env interface {
	// Original returns the extracted text before any action ran.
	Original() string
	// Lookup returns the resolved value of another field of the same record.
	Lookup(name string) (any, bool)
}

// Func transforms the current value.
type Func func(v any, env Env) (any, error)

// Builder validates raw parameters and returns the transform plus the names
// of the fields it reads.
type Builder func(p Params) (Func, []string, error)

var registry = map[string]Builder{}

// Register adds a named action.
func Register(name string, b Builder) {
	registry[name] = b
}

// Known reports whether name is a registered action.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns the registered action names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Step is a compiled action.
type Step struct {
	Name string
	// Reads lists the fields the action looks up at run time.
	Reads []string
	fn    Func
}

// Compile validates params for the named action.
func Compile(name string, params any) (Step, error) {
	if !Known(name) {
		return Step{}, fmt.Errorf("%w: %q (known: %s)", fault.ErrUnknownAction, name, strings.Join(Names(), ", "))
	}
	fn, reads, err := registry[name](NewParams(params))
	if err != nil {
		return Step{}, fmt.Errorf("action %s: %w", name, err)
	}
	return Step{Name: name, Reads: reads, fn: fn}, nil
}

// Apply runs steps in order, each one receiving the previous output.
func Apply(v any, steps []Step, env Env) (any, error) {
	for _, s := range steps {
		if s.fn == nil {
			return nil, fmt.Errorf("%w: %q", fault.ErrUnknownAction, s.Name)
		}
		out, err := s.fn(v, env)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", s.Name, err)
		}
		v = out
	}
	return v, nil
}
