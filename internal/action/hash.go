package action

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/OneOfOne/xxhash"

	"github.com/flarebyte/clipper/internal/fault"
)

func init() { Register("hash", buildHash) }

// buildHash fingerprints a CSV block: the sorted first-column values are
// concatenated behind an optional prefix field and hashed with xxHash32.
func buildHash(p Params) (Func, []string, error) {
	withVar, hasVar, err := p.OptString("with_var")
	if err != nil {
		return nil, nil, err
	}
	var reads []string
	if hasVar {
		reads = []string{withVar}
	}
	return func(v any, env Env) (any, error) {
		prefix := ""
		if hasVar {
			pv, ok := env.Lookup(withVar)
			if !ok {
				return nil, fmt.Errorf("%w: %q", fault.ErrMissingSourceField, withVar)
			}
			prefix = asString(pv)
		}
		r := csv.NewReader(strings.NewReader(asString(v)))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, paramError("hash input is not csv: %v", err)
		}
		first := make([]string, 0, len(rows))
		for _, row := range rows {
			if len(row) > 0 {
				first = append(first, row[0])
			}
		}
		sort.Strings(first)
		sum := xxhash.ChecksumString32(prefix + strings.Join(first, ""))
		return fmt.Sprintf("%08x", sum), nil
	}, reads, nil
}
