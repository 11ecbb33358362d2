package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/flarebyte/clipper/internal/fault"
)

// compileCUE loads a .cue or .json file. JSON goes through the JSON
// extractor so that its escapes are read as JSON rather than CUE.
func compileCUE(path string) (cue.Value, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".cue" && ext != ".json" {
		return cue.Value{}, fmt.Errorf("%w: unsupported config format: expected .json or .cue", fault.ErrConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	var v cue.Value
	if ext == ".json" {
		expr, err := cuejson.Extract(path, data)
		if err != nil {
			return cue.Value{}, fmt.Errorf("%w: invalid config: %v", fault.ErrConfig, err)
		}
		v = ctx.BuildExpr(expr)
	} else {
		v = ctx.CompileBytes(data, cue.Filename(path))
	}
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("%w: invalid config: %v", fault.ErrConfig, err)
	}
	return v, nil
}

func lookupString(v cue.Value, name string) (string, bool, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", false, nil
	}
	if f.Kind() != cue.StringKind {
		return "", true, fmt.Errorf("%w: invalid type for field: %s (expected string)", fault.ErrConfig, name)
	}
	var s string
	if err := f.Decode(&s); err != nil {
		return "", true, fmt.Errorf("%w: invalid value for %s: %v", fault.ErrConfig, name, err)
	}
	return s, true, nil
}
