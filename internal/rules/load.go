package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/flarebyte/clipper/internal/fault"
)

// Format selects the rule file decoder.
type Format int

const (
	FormatJSON Format = iota
	FormatCUE
	FormatYAML
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("%w: unsupported rules format %q (expected .json, .cue, .yaml)", fault.ErrConfig, filepath.Ext(path))
}

// Load reads and validates a rule file.
func Load(path string) (*RuleSet, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	rs, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates rules. Field and action order follow the
// document.
func Parse(data []byte, format Format) (*RuleSet, error) {
	var (
		docs []document
		err  error
	)
	switch format {
	case FormatYAML:
		docs, err = decodeYAML(data)
	default:
		docs, err = decodeCUE(data, format)
	}
	if err != nil {
		return nil, err
	}
	return build(docs)
}

// document is one decoded field before validation.
type document struct {
	Name    string
	Body    fieldDoc
	Actions []actionDoc
}

type actionDoc struct {
	Name   string
	Params any
}

type fieldDoc struct {
	Source        string       `json:"source" yaml:"source"`
	Type          string       `json:"type" yaml:"type"`
	BegPairs      *[]markerDoc `json:"begPairs" yaml:"begPairs"`
	EndPairs      *[]markerDoc `json:"endPairs" yaml:"endPairs"`
	BegIndexs     []int        `json:"begIndexs" yaml:"begIndexs"`
	ParseInTheEnd bool         `json:"parseInTheEnd" yaml:"parseInTheEnd"`
	Delete        bool         `json:"delete" yaml:"delete"`
}

// markerDoc accepts either a string or a list of alternative strings.
type markerDoc []string

func (m *markerDoc) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = markerDoc{s}
		return nil
	}
	var alts []string
	if err := json.Unmarshal(b, &alts); err != nil {
		return fmt.Errorf("marker must be a string or a list of strings")
	}
	*m = alts
	return nil
}

func (m *markerDoc) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*m = markerDoc{s}
		return nil
	case yaml.SequenceNode:
		var alts []string
		if err := n.Decode(&alts); err != nil {
			return err
		}
		*m = alts
		return nil
	}
	return fmt.Errorf("line %d: marker must be a string or a list of strings", n.Line)
}

func decodeCUE(data []byte, format Format) ([]document, error) {
	ctx := cuecontext.New()
	var v cue.Value
	if format == FormatJSON {
		expr, err := cuejson.Extract("rules.json", data)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid rules: %v", fault.ErrConfig, err)
		}
		v = ctx.BuildExpr(expr)
	} else {
		v = ctx.CompileBytes(data)
	}
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%w: invalid rules: %v", fault.ErrConfig, err)
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("%w: rules must be an object of fields: %v", fault.ErrConfig, err)
	}
	var docs []document
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		name := sel.Unquoted()
		fv := iter.Value()
		var body fieldDoc
		if err := decodeCUEValue(fv, &body); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", fault.ErrConfig, name, err)
		}
		acts, err := cueActions(fv.LookupPath(cue.ParsePath("actions")))
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", fault.ErrConfig, name, err)
		}
		docs = append(docs, document{Name: name, Body: body, Actions: acts})
	}
	return docs, nil
}

// cueActions walks the actions struct in declaration order.
func cueActions(v cue.Value) ([]actionDoc, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("actions must be an object: %v", err)
	}
	var out []actionDoc
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		var params any
		if err := decodeCUEValue(iter.Value(), &params); err != nil {
			return nil, fmt.Errorf("action %s: %v", sel.Unquoted(), err)
		}
		out = append(out, actionDoc{Name: sel.Unquoted(), Params: params})
	}
	return out, nil
}

// decodeCUEValue goes through JSON so that untyped params become plain maps,
// slices and float64 numbers.
func decodeCUEValue(v cue.Value, dst any) error {
	raw, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func decodeYAML(data []byte) ([]document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: invalid rules: %v", fault.ErrConfig, err)
	}
	m := &root
	if m.Kind == yaml.DocumentNode && len(m.Content) > 0 {
		m = m.Content[0]
	}
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: rules must be a mapping of fields", fault.ErrConfig)
	}
	var docs []document
	for i := 0; i+1 < len(m.Content); i += 2 {
		name := m.Content[i].Value
		body := m.Content[i+1]
		var fd fieldDoc
		if err := body.Decode(&fd); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", fault.ErrConfig, name, err)
		}
		acts, err := yamlActions(mappingValue(body, "actions"))
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", fault.ErrConfig, name, err)
		}
		docs = append(docs, document{Name: name, Body: fd, Actions: acts})
	}
	return docs, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func yamlActions(n *yaml.Node) ([]actionDoc, error) {
	if n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: actions must be a mapping", n.Line)
	}
	var out []actionDoc
	for i := 0; i+1 < len(n.Content); i += 2 {
		var params any
		if err := n.Content[i+1].Decode(&params); err != nil {
			return nil, fmt.Errorf("action %s: %v", n.Content[i].Value, err)
		}
		out = append(out, actionDoc{Name: n.Content[i].Value, Params: params})
	}
	return out, nil
}
