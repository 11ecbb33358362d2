package diagnose

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/flarebyte/clipper/internal/batch"
	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/extract"
	"github.com/flarebyte/clipper/internal/fault"
	"github.com/flarebyte/clipper/internal/logging"
	"github.com/flarebyte/clipper/internal/record"
	"github.com/flarebyte/clipper/internal/rules"
)

var (
	flagField        string
	flagPretty       bool
	flagSourceOffset string
)

// Cmd implements `clipper diagnose`.
var Cmd = &cobra.Command{
	Use:           "diagnose <file> <rule>",
	Short:         "Show how one field is clipped from one file",
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagField == "" {
			return errors.New("missing required flag: --field")
		}
		r, err := diagnoseField(cmd, args[0], args[1], flagField)
		if err != nil {
			return err
		}
		return encodeJSON(cmd.OutOrStdout(), r, flagPretty)
	},
}

func init() {
	Cmd.Flags().StringVar(&flagField, "field", "", "Field to trace")
	Cmd.Flags().BoolVar(&flagPretty, "pretty", false, "Pretty JSON")
	Cmd.Flags().StringVar(&flagSourceOffset, "source-offset", "", "UTC offset of datetimes in the log, e.g. +08:00")
}

// fieldReport is the JSON document printed by diagnose.
type fieldReport struct {
	File     string         `json:"file"`
	Field    string         `json:"field"`
	Source   string         `json:"source"`
	Type     coerce.Type    `json:"type"`
	Deferred bool           `json:"deferred,omitempty"`
	Steps    []extract.Step `json:"steps"`
	Clipped  *string        `json:"clipped,omitempty"`
	Value    string         `json:"value,omitempty"`
	Kind     fault.Kind     `json:"kind,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func diagnoseField(cmd *cobra.Command, path, rulePath, name string) (fieldReport, error) {
	rs, err := rules.Load(rulePath)
	if err != nil {
		return fieldReport{}, err
	}
	f, ok := rs.Field(name)
	if !ok {
		return fieldReport{}, fmt.Errorf("%w: unknown field %q", fault.ErrConfig, name)
	}
	text, err := batch.ReadText(path)
	if err != nil {
		return fieldReport{}, err
	}

	opts := []record.Option{record.WithFields(name), record.WithLogger(logging.From(cmd.Context()))}
	if flagSourceOffset != "" {
		loc, err := coerce.ParseOffset(flagSourceOffset)
		if err != nil {
			return fieldReport{}, fmt.Errorf("%w: source offset: %v", fault.ErrConfig, err)
		}
		opts = append(opts, record.WithLocation(loc))
	}
	res := record.NewParser(rs, opts...).Parse(text)

	r := fieldReport{
		File:     path,
		Field:    name,
		Source:   f.Source,
		Type:     f.Type,
		Deferred: f.Deferred,
		Steps:    []extract.Step{},
	}
	src := text
	if !f.FromRaw() {
		v, ok := res.Get(f.Source)
		if !ok || !v.OK() {
			r.Kind = fault.KindMissingSourceField
			r.Error = fmt.Sprintf("source field %q did not resolve", f.Source)
			return r, nil
		}
		src = v.Text
	}

	steps, traceErr := extract.Trace(extract.Source{Text: src}, f.Pairs)
	r.Steps = append(r.Steps, steps...)
	if traceErr == nil {
		clipped := src
		if len(steps) > 0 {
			clipped = steps[len(steps)-1].Window
		}
		r.Clipped = &clipped
	}

	if v, ok := res.Get(name); ok {
		if v.OK() {
			r.Value = v.Text
		} else {
			r.Kind = fault.Classify(v.Err)
			r.Error = fault.Message(v.Err)
		}
	}
	return r, nil
}

func encodeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
