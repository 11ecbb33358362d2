package action

import (
	"fmt"
	"math"

	"github.com/flarebyte/clipper/internal/fault"
)

// Params wraps the decoded parameters of one action. Rule files decode to
// plain Go values: maps, slices, strings, bools and numbers.
type Params struct {
	raw any
}

// NewParams wraps raw decoded parameters.
func NewParams(raw any) Params { return Params{raw: raw} }

func (p Params) object() map[string]any {
	m, _ := p.raw.(map[string]any)
	return m
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.object()[key]
	return ok
}

// String returns a required string parameter.
func (p Params) String(key string) (string, error) {
	s, ok, err := p.OptString(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", paramError("missing parameter %q", key)
	}
	return s, nil
}

// OptString returns an optional string parameter.
func (p Params) OptString(key string) (string, bool, error) {
	v, ok := p.object()[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, paramError("parameter %q must be a string", key)
	}
	return s, true, nil
}

// Int returns a required integer parameter.
func (p Params) Int(key string) (int, error) {
	v, ok := p.object()[key]
	if !ok {
		return 0, paramError("missing parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	}
	return 0, paramError("parameter %q must be an integer", key)
}

// Strings returns a required list of strings.
func (p Params) Strings(key string) ([]string, error) {
	v, ok := p.object()[key]
	if !ok {
		return nil, paramError("missing parameter %q", key)
	}
	items, isList := v.([]any)
	if !isList {
		return nil, paramError("parameter %q must be a list", key)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, isStr := it.(string)
		if !isStr {
			return nil, paramError("parameter %q[%d] must be a string", key, i)
		}
		out[i] = s
	}
	return out, nil
}

// List returns the elements when the parameters are a list.
func (p Params) List() ([]Params, bool) {
	items, ok := p.raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Params, len(items))
	for i, it := range items {
		out[i] = Params{raw: it}
	}
	return out, true
}

func paramError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", fault.ErrActionParameter, fmt.Sprintf(format, args...))
}
