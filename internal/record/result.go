package record

import (
	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/rules"
)

// Value is the outcome of one field.
type Value struct {
	// Value is the coerced value: string, int64, float64, bool or time.Time.
	Value any
	// Text is the resolved string form, used as a source by other fields and
	// for output.
	Text string
	Err  error
}

// OK reports whether the field resolved.
func (v Value) OK() bool { return v.Err == nil }

// Result holds the field values of one input. It belongs to the goroutine
// that produced it.
type Result struct {
	rules  *rules.RuleSet
	values map[string]Value
	err    error
}

func newResult(rs *rules.RuleSet) *Result {
	return &Result{rules: rs, values: make(map[string]Value, rs.Len())}
}

// Failed returns a result that carries only a file-level error.
func Failed(rs *rules.RuleSet, err error) *Result {
	r := newResult(rs)
	r.err = err
	return r
}

// Err returns the file-level error, if any.
func (r *Result) Err() error { return r.err }

// OK is false only when the whole input could not be parsed. Field failures
// do not affect it.
func (r *Result) OK() bool { return r.err == nil }

// Get returns the outcome of a field. Fields skipped by selective parsing
// are absent.
func (r *Result) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of fields attempted.
func (r *Result) Len() int { return len(r.values) }

// Named pairs a field name with its outcome.
type Named struct {
	Name string
	Value
}

// Visible returns attempted fields in declaration order, without fields
// marked for deletion.
func (r *Result) Visible() []Named {
	out := make([]Named, 0, len(r.values))
	for _, f := range r.rules.Fields() {
		if f.Delete {
			continue
		}
		if v, ok := r.values[f.Name]; ok {
			out = append(out, Named{Name: f.Name, Value: v})
		}
	}
	return out
}

// Errors returns failed fields in declaration order.
func (r *Result) Errors() []Named {
	var out []Named
	for _, f := range r.rules.Fields() {
		if v, ok := r.values[f.Name]; ok && v.Err != nil {
			out = append(out, Named{Name: f.Name, Value: v})
		}
	}
	return out
}

// Row renders the given columns. Failed or skipped fields are empty.
func (r *Result) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		if v, ok := r.values[c]; ok && v.Err == nil {
			row[i] = v.Text
		}
	}
	return row
}

// Map returns the resolved values keyed by field name, without failed or
// deleted fields.
func (r *Result) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for _, n := range r.Visible() {
		if n.Err == nil {
			out[n.Name] = n.Value.Value
		}
	}
	return out
}

func (r *Result) set(name string, v any) {
	r.values[name] = Value{Value: v, Text: coerce.Format(v)}
}

func (r *Result) fail(name string, err error) {
	r.values[name] = Value{Err: err}
}
