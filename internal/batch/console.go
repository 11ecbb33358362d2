package batch

import (
	"fmt"
	"io"
	"os"

	"github.com/tyler-sommer/stick"

	"github.com/flarebyte/clipper/internal/fault"
)

// DefaultConsoleTemplate prints the path followed by one line per field.
const DefaultConsoleTemplate = `== {{ path }}
{% for f in fields %}{% if f.ok %}{{ f.name }}: {{ f.value }}{% else %}{{ f.name }}: <{{ f.kind }}: {{ f.error }}>{% endif %}
{% endfor %}`

// ConsoleSink renders each outcome with a Twig template.
type ConsoleSink struct {
	w   io.Writer
	env *stick.Env
	tpl string
}

// NewConsoleSink renders to w with tpl, or DefaultConsoleTemplate when tpl
// is empty. Template variables: path, fields (name, value, ok, kind, error)
// and values (field name to value).
func NewConsoleSink(w io.Writer, tpl string) *ConsoleSink {
	if tpl == "" {
		tpl = DefaultConsoleTemplate
	}
	return &ConsoleSink{w: w, env: stick.New(nil), tpl: tpl}
}

// LoadConsoleTemplate reads a template file for NewConsoleSink.
func LoadConsoleTemplate(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(b), nil
}

func (s *ConsoleSink) Write(o Outcome) error {
	fields := make([]stick.Value, 0)
	values := make(map[string]stick.Value)
	for _, n := range o.Result.Visible() {
		f := map[string]stick.Value{
			"name":  n.Name,
			"value": n.Text,
			"ok":    n.OK(),
			"kind":  string(fault.Classify(n.Err)),
			"error": fault.Message(n.Err),
		}
		fields = append(fields, f)
		if n.OK() {
			values[n.Name] = n.Text
		}
	}
	ctx := map[string]stick.Value{
		"path":   o.Path,
		"fields": fields,
		"values": values,
	}
	if err := s.env.Execute(s.tpl, s.w, ctx); err != nil {
		return fmt.Errorf("render %s: %w", o.Path, err)
	}
	return nil
}

func (s *ConsoleSink) Close() error { return nil }
