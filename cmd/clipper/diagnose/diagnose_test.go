package diagnose

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/clipper/internal/fault"
)

const rulesJSON = `{
  "section": {"source": "scontext", "type": "string", "begPairs": ["TEST_SECTION"], "endPairs": ["END_SECTION"]},
  "second": {
    "source": "section", "type": "integer",
    "begPairs": ["Value: "], "endPairs": [","], "begIndexs": [2]
  },
  "tenth": {
    "source": "section", "type": "integer",
    "begPairs": ["Value: "], "endPairs": [","], "begIndexs": [10]
  },
  "missing": {"source": "scontext", "type": "string", "begPairs": ["NOPE"], "endPairs": ["\n"]},
  "child": {"source": "missing", "type": "string", "begPairs": [], "endPairs": []}
}`

const logBody = "head\nTEST_SECTION\nValue: 123,\nValue: 456,\nEND_SECTION\n"

func setup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	rule := filepath.Join(dir, "rules.json")
	file := filepath.Join(dir, "a.cap")
	require.NoError(t, os.WriteFile(rule, []byte(rulesJSON), 0o644))
	require.NoError(t, os.WriteFile(file, []byte(logBody), 0o644))
	return file, rule
}

func TestDiagnoseFieldSteps(t *testing.T) {
	file, rule := setup(t)
	r, err := diagnoseField(&cobra.Command{}, file, rule, "second")
	require.NoError(t, err)
	require.Equal(t, "section", r.Source)
	require.Equal(t, "456", r.Value)
	require.Len(t, r.Steps, 1)
	require.Equal(t, 2, r.Steps[0].Occurrence)
	require.Equal(t, "456", r.Steps[0].Window)
	require.NotNil(t, r.Clipped)
	require.Equal(t, "456", *r.Clipped)
	require.Empty(t, r.Error)
}

func TestDiagnoseFieldOutOfRange(t *testing.T) {
	file, rule := setup(t)
	r, err := diagnoseField(&cobra.Command{}, file, rule, "tenth")
	require.NoError(t, err)
	require.Equal(t, fault.KindOccurrenceOutOfRange, r.Kind)
	require.Empty(t, r.Steps)
	require.Nil(t, r.Clipped)
}

func TestDiagnoseFieldMissingSource(t *testing.T) {
	file, rule := setup(t)
	r, err := diagnoseField(&cobra.Command{}, file, rule, "child")
	require.NoError(t, err)
	require.Equal(t, fault.KindMissingSourceField, r.Kind)
	require.Contains(t, r.Error, `"missing"`)
}

func TestDiagnoseUnknownField(t *testing.T) {
	file, rule := setup(t)
	_, err := diagnoseField(&cobra.Command{}, file, rule, "nope")
	require.ErrorIs(t, err, fault.ErrConfig)
}

func TestDiagnoseCommandJSON(t *testing.T) {
	file, rule := setup(t)
	defer func() { flagField, flagPretty = "", false }()
	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetArgs([]string{file, rule, "--field", "second", "--pretty"})
	require.NoError(t, Cmd.Execute())

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "second", got["field"])
	require.Equal(t, "456", got["value"])
	require.Contains(t, out.String(), "\n  \"steps\"")
}
