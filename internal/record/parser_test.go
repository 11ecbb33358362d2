package record

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/fault"
	"github.com/flarebyte/clipper/internal/rules"
)

const sampleLog = `Start Time: 2024/05/01 08:00:00
SN=AB-1234-XY;
TEST_SECTION
  RESULT: Test1
    Value: 123,
    Value: 456,
  RESULT: Test2
    Value: 789,
END_SECTION
End Time: 2024/05/01 08:01:30
`

const sampleRules = `{
  "duration": {
    "source": "scontext", "type": "float", "begPairs": [], "endPairs": [],
    "parseInTheEnd": true,
    "actions": {"delta": {"fromKeys": ["tend", "tbeg"]}}
  },
  "tbeg": {"source": "scontext", "type": "datetime", "begPairs": ["Start Time: "], "endPairs": ["\n"]},
  "tend": {"source": "scontext", "type": "datetime", "begPairs": ["End Time: "], "endPairs": ["\n"]},
  "first": {
    "source": "scontext", "type": "integer",
    "begPairs": ["TEST_SECTION", "RESULT: Test1", "Value: "],
    "endPairs": ["END_SECTION", "RESULT: Test2", ","]
  },
  "second": {
    "source": "scontext", "type": "integer",
    "begPairs": ["TEST_SECTION", "RESULT: Test1", "Value: "],
    "endPairs": ["END_SECTION", "RESULT: Test2", ","],
    "begIndexs": [1, 1, 2]
  },
  "fifth": {
    "source": "scontext", "type": "integer",
    "begPairs": ["TEST_SECTION", "RESULT: Test1", "Value: "],
    "endPairs": ["END_SECTION", "RESULT: Test2", ","],
    "begIndexs": [1, 1, 5]
  },
  "raw_sn": {"source": "scontext", "type": "string", "begPairs": ["SN="], "endPairs": [";"], "delete": true},
  "sn": {"source": "raw_sn", "type": "integer", "begPairs": ["-"], "endPairs": ["-"]},
  "orphan": {"source": "fifth", "type": "string", "begPairs": [], "endPairs": []},
  "late_sn": {
    "source": "sn", "type": "string", "begPairs": [], "endPairs": [],
    "parseInTheEnd": true,
    "actions": {"merge": {"with_var": "duration", "sep": "/"}}
  }
}`

func mustRules(t *testing.T, doc string) *rules.RuleSet {
	t.Helper()
	rs, err := rules.Parse([]byte(doc), rules.FormatJSON)
	if err != nil {
		t.Fatalf("rules.Parse: %v", err)
	}
	return rs
}

func mustGet(t *testing.T, r *Result, name string) Value {
	t.Helper()
	v, ok := r.Get(name)
	if !ok {
		t.Fatalf("field %s not attempted", name)
	}
	return v
}

func TestParseResolvesFields(t *testing.T) {
	res := NewParser(mustRules(t, sampleRules)).Parse(sampleLog)
	if !res.OK() {
		t.Fatalf("file error: %v", res.Err())
	}
	tests := []struct {
		name string
		want any
	}{
		{"first", int64(123)},
		{"second", int64(456)},
		{"sn", int64(1234)},
		{"duration", float64(90)},
		{"tbeg", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"late_sn", "1234/90"},
	}
	for _, tt := range tests {
		v := mustGet(t, res, tt.name)
		if v.Err != nil {
			t.Fatalf("%s: %v", tt.name, v.Err)
		}
		if diff := cmp.Diff(tt.want, v.Value); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestFieldFailureIsIsolated(t *testing.T) {
	res := NewParser(mustRules(t, sampleRules)).Parse(sampleLog)
	fifth := mustGet(t, res, "fifth")
	if !errors.Is(fifth.Err, fault.ErrOccurrenceOutOfRange) {
		t.Fatalf("fifth err = %v, want occurrence out of range", fifth.Err)
	}
	orphan := mustGet(t, res, "orphan")
	if !errors.Is(orphan.Err, fault.ErrMissingSourceField) {
		t.Fatalf("orphan err = %v, want missing source field", orphan.Err)
	}
	if !res.OK() {
		t.Fatalf("field failures must not fail the record")
	}
	var failed []string
	for _, n := range res.Errors() {
		failed = append(failed, n.Name)
	}
	if diff := cmp.Diff([]string{"fifth", "orphan"}, failed); diff != "" {
		t.Fatalf("failed fields (-want +got):\n%s", diff)
	}
}

func TestDeferredFieldsSeeEarlierResults(t *testing.T) {
	// duration is declared first but deferred, so tbeg and tend exist when it runs.
	res := NewParser(mustRules(t, sampleRules)).Parse(sampleLog)
	if v := mustGet(t, res, "duration"); v.Err != nil {
		t.Fatalf("duration: %v", v.Err)
	}
}

func TestDeletedFieldsAreHidden(t *testing.T) {
	res := NewParser(mustRules(t, sampleRules)).Parse(sampleLog)
	if _, ok := res.Get("raw_sn"); !ok {
		t.Fatalf("raw_sn should still be resolved")
	}
	for _, n := range res.Visible() {
		if n.Name == "raw_sn" {
			t.Fatalf("raw_sn should not be visible")
		}
	}
	if _, ok := res.Map()["raw_sn"]; ok {
		t.Fatalf("raw_sn should not be in Map")
	}
}

func TestRowFollowsColumns(t *testing.T) {
	rs := mustRules(t, sampleRules)
	res := NewParser(rs).Parse(sampleLog)
	got := res.Row(rs.Columns())
	want := []string{"90", "2024/05/01 08:00:00", "2024/05/01 08:01:30", "123", "456", "", "1234", "", "1234/90"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("row (-want +got):\n%s", diff)
	}
}

func TestCacheDoesNotChangeResults(t *testing.T) {
	rs := mustRules(t, sampleRules)
	cached := NewParser(rs).Parse(sampleLog)
	plain := NewParser(rs, WithoutCache()).Parse(sampleLog)
	if diff := cmp.Diff(cached.Row(rs.Columns()), plain.Row(rs.Columns())); diff != "" {
		t.Fatalf("cached vs uncached (-cached +plain):\n%s", diff)
	}
}

func TestWithFieldsParsesDependencyClosure(t *testing.T) {
	rs := mustRules(t, sampleRules)
	res := NewParser(rs, WithFields("duration", "unknown")).Parse(sampleLog)
	if res.Len() != 3 {
		t.Fatalf("attempted %d fields, want 3 (duration, tbeg, tend)", res.Len())
	}
	for _, name := range []string{"duration", "tbeg", "tend"} {
		if v := mustGet(t, res, name); v.Err != nil {
			t.Fatalf("%s: %v", name, v.Err)
		}
	}
	if _, ok := res.Get("first"); ok {
		t.Fatalf("first should be skipped")
	}
}

func TestWithLocationConvertsToUTC(t *testing.T) {
	loc, err := coerce.ParseOffset("+08:00")
	if err != nil {
		t.Fatalf("ParseOffset: %v", err)
	}
	res := NewParser(mustRules(t, sampleRules), WithLocation(loc)).Parse(sampleLog)
	v := mustGet(t, res, "tbeg")
	if v.Text != "2024/05/01 00:00:00" {
		t.Fatalf("tbeg = %q, want %q", v.Text, "2024/05/01 00:00:00")
	}
	if d := mustGet(t, res, "duration"); d.Value != float64(90) {
		t.Fatalf("duration = %v, want 90", d.Value)
	}
}

func TestFailedResult(t *testing.T) {
	rs := mustRules(t, sampleRules)
	res := Failed(rs, fault.ErrFileRead)
	if res.OK() || !errors.Is(res.Err(), fault.ErrFileRead) {
		t.Fatalf("Failed result = %v, want file read error", res.Err())
	}
	if res.Len() != 0 {
		t.Fatalf("failed result has %d fields", res.Len())
	}
}
