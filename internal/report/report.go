// Package report writes a YAML summary of one or more batch runs.
package report

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/flarebyte/clipper/internal/batch"
)

// Job describes one batch for the report.
type Job struct {
	Name    string
	Rule    string
	Columns []string
	Stats   batch.Stats
	// Err is the error the batch stopped with, if any.
	Err error
}

// Marshal returns canonical YAML: jobs in the given order, map keys sorted.
func Marshal(jobs []Job) ([]byte, error) {
	runs := &yaml.Node{Kind: yaml.SequenceNode}
	for _, j := range jobs {
		runs.Content = append(runs.Content, canonicalNode(jobMap(j)))
	}
	top := &yaml.Node{Kind: yaml.MappingNode}
	top.Content = append(top.Content, scalarNode("runs"), runs)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

// Write writes the report to path, creating parent directories.
func Write(path string, jobs []Job) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := Marshal(jobs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func jobMap(j Job) map[string]any {
	st := j.Stats
	m := map[string]any{
		"name":      j.Name,
		"rule":      j.Rule,
		"runId":     st.RunID,
		"attempted": st.Attempted,
		"succeeded": st.Succeeded,
		"failed":    st.Failed,
		"elapsed":   st.Elapsed.String(),
	}
	if st.Output != "" {
		m["output"] = st.Output
	}
	if j.Err != nil {
		m["error"] = j.Err.Error()
	}
	// Coverage is keyed by column so every declared field appears, even with
	// zero hits.
	cov := make(map[string]any, len(j.Columns))
	for _, c := range j.Columns {
		cov[c] = map[string]any{
			"hits":  st.FieldHits[c],
			"ratio": st.Coverage(c),
		}
	}
	m["coverage"] = cov
	if len(st.Failures) > 0 {
		failures := make([]any, 0, len(st.Failures))
		for _, f := range st.Failures {
			failures = append(failures, map[string]any{
				"path":       f.Path,
				"kind":       string(f.Kind),
				"message":    f.Message,
				"fieldLevel": f.FieldLevel,
			})
		}
		m["failures"] = failures
	}
	return m
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func scalarFrom(v any) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(v)
	return n
}

func canonicalNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.MappingNode}
	case map[string]any:
		return canonicalMapNode(x)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, it := range x {
			n.Content = append(n.Content, canonicalNode(it))
		}
		return n
	default:
		return scalarFrom(x)
	}
}

func canonicalMapNode(m map[string]any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Content = append(n.Content, scalarNode(k), canonicalNode(m[k]))
	}
	return n
}
