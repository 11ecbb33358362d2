package action

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flarebyte/clipper/internal/fault"
)

type fakeEnv struct {
	original string
	fields   map[string]any
}

func (e fakeEnv) Original() string { return e.original }

func (e fakeEnv) Lookup(name string) (any, bool) {
	v, ok := e.fields[name]
	return v, ok
}

type spec struct {
	name   string
	params any
}

func run(t *testing.T, v any, env Env, specs ...spec) (any, error) {
	t.Helper()
	steps := make([]Step, 0, len(specs))
	for _, s := range specs {
		st, err := Compile(s.name, s.params)
		if err != nil {
			t.Fatalf("Compile(%s): %v", s.name, err)
		}
		steps = append(steps, st)
	}
	return Apply(v, steps, env)
}

func obj(kv ...any) map[string]any {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestApplyInDeclarationOrder(t *testing.T) {
	env := fakeEnv{}
	got, err := run(t, "  PN: 90-AB12-01 rev3 ", env,
		spec{"strip", nil},
		spec{"split", obj("sep", " ", "index", float64(1))},
		spec{"replace", obj("from", "-", "to", "")},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "90AB1201" {
		t.Fatalf("Apply = %q, want %q", got, "90AB1201")
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		index float64
		want  string
	}{
		{0, "a"}, {2, "c"}, {-1, "c"},
	}
	for _, tt := range tests {
		got, err := run(t, "a|b|c", fakeEnv{}, spec{"split", obj("sep", "|", "index", tt.index)})
		if err != nil {
			t.Fatalf("split[%v]: %v", tt.index, err)
		}
		if got != tt.want {
			t.Fatalf("split[%v] = %q, want %q", tt.index, got, tt.want)
		}
	}
	_, err := run(t, "a|b", fakeEnv{}, spec{"split", obj("sep", "|", "index", 5)})
	if !errors.Is(err, fault.ErrActionParameter) {
		t.Fatalf("split out of range err = %v", err)
	}
}

func TestTrueFalse(t *testing.T) {
	tests := []struct {
		params map[string]any
		want   bool
	}{
		{obj("compare", "PASS"), true},
		{obj("compare", "pass"), false},
		{obj("contains", "AS"), true},
		{obj("contains_nocase", "pAs"), true},
		{obj("contains", "FAIL"), false},
	}
	for _, tt := range tests {
		got, err := run(t, "PASS", fakeEnv{}, spec{"trueFalse", tt.params})
		if err != nil {
			t.Fatalf("trueFalse %v: %v", tt.params, err)
		}
		if got != tt.want {
			t.Fatalf("trueFalse %v = %v, want %v", tt.params, got, tt.want)
		}
	}
}

func TestTrueFalseNeedsExactlyOneParameter(t *testing.T) {
	for _, p := range []map[string]any{obj(), obj("compare", "a", "contains", "b")} {
		if _, err := Compile("trueFalse", p); !errors.Is(err, fault.ErrActionParameter) {
			t.Fatalf("Compile(trueFalse, %v) err = %v", p, err)
		}
	}
}

func TestFindPatternUsesOriginalText(t *testing.T) {
	env := fakeEnv{original: "temp=41.5C temp=47C temp=39.25C"}
	got, err := run(t, "ignored", env,
		spec{"split", obj("sep", " ", "index", 0)},
		spec{"findMaxPattern", obj("pattern", `temp=([0-9.]+)`)},
	)
	if err != nil {
		t.Fatalf("findMaxPattern: %v", err)
	}
	if got != "47" {
		t.Fatalf("findMaxPattern = %q, want %q", got, "47")
	}
	got, err = run(t, "", env, spec{"findMinPattern", obj("pattern", `[0-9]+\.[0-9]+`)})
	if err != nil {
		t.Fatalf("findMinPattern: %v", err)
	}
	if got != "39.25" {
		t.Fatalf("findMinPattern = %q, want %q", got, "39.25")
	}
	_, err = run(t, "", env, spec{"findMaxPattern", obj("pattern", `volt=(\d+)`)})
	if !errors.Is(err, fault.ErrActionParameter) {
		t.Fatalf("no match err = %v", err)
	}
}

func TestReplaceListForm(t *testing.T) {
	got, err := run(t, "Fail!! err, correct", fakeEnv{}, spec{"replace", []any{
		obj("from", "Fail!!", "to", ""),
		obj("from", ",", "to", ";"),
	}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got != " err; correct" {
		t.Fatalf("replace = %q", got)
	}
}

func TestDelta(t *testing.T) {
	beg := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	env := fakeEnv{fields: map[string]any{
		"tbeg": beg,
		"tend": beg.Add(90 * time.Second),
		"hi":   int64(12),
		"lo":   "2.5",
	}}
	got, err := run(t, "x", env, spec{"delta", obj("fromKeys", []any{"tend", "tbeg"})})
	if err != nil || got != float64(90) {
		t.Fatalf("delta times = %v, %v; want 90", got, err)
	}
	got, err = run(t, "x", env, spec{"delta", obj("from_keys", []any{"hi", "lo"})})
	if err != nil || got != 9.5 {
		t.Fatalf("delta numbers = %v, %v; want 9.5", got, err)
	}
	_, err = run(t, "x", env, spec{"delta", obj("fromKeys", []any{"hi", "absent"})})
	if !errors.Is(err, fault.ErrMissingSourceField) {
		t.Fatalf("delta missing err = %v", err)
	}
}

func TestMerge(t *testing.T) {
	env := fakeEnv{fields: map[string]any{"date": "2024/01/02 10:00:00"}}
	got, err := run(t, "12:00", env, spec{"r_merge", obj("with_var", "date", "sep", " ")})
	if err != nil || got != "2024/01/02 12:00" {
		t.Fatalf("r_merge = %v, %v", got, err)
	}
	got, err = run(t, "A", env, spec{"merge", obj("with_value", "B", "sep", "-")})
	if err != nil || got != "A-B" {
		t.Fatalf("merge = %v, %v", got, err)
	}
}

func TestHashIsOrderInsensitive(t *testing.T) {
	env := fakeEnv{fields: map[string]any{"wo": "WO123"}}
	a, err := run(t, "b,1\na,2\n", env, spec{"hash", obj("with_var", "wo")})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := run(t, "a,9\n\nb,8\n", env, spec{"hash", obj("with_var", "wo")})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a != b {
		t.Fatalf("hash differs: %v vs %v", a, b)
	}
	if s, _ := a.(string); len(s) != 8 {
		t.Fatalf("hash = %q, want 8 hex chars", s)
	}
}

func TestLua(t *testing.T) {
	env := fakeEnv{original: "raw", fields: map[string]any{"unit": "mV"}}
	got, err := run(t, "12", env, spec{"lua", obj("script", `tonumber(value) * 2 .. field("unit")`)})
	if err != nil {
		t.Fatalf("lua: %v", err)
	}
	if got != "24mV" {
		t.Fatalf("lua = %v, want 24mV", got)
	}
	got, err = run(t, "7", env, spec{"lua", obj("script", "return tonumber(value) > 5")})
	if err != nil || got != true {
		t.Fatalf("lua bool = %v, %v", got, err)
	}
}

func TestLuaExpressionMentioningReturn(t *testing.T) {
	env := fakeEnv{fields: map[string]any{"returns": "3"}}
	tests := []struct {
		script string
		want   any
	}{
		{`value .. ' returned'`, "ok returned"},
		{`value .. field("returns")`, "ok3"},
		{`value -- returns the value`, "ok"},
		{"local r = value .. '!'\nreturn r", "ok!"},
	}
	for _, tt := range tests {
		got, err := run(t, "ok", env, spec{"lua", obj("script", tt.script)})
		if err != nil {
			t.Fatalf("lua(%q): %v", tt.script, err)
		}
		if got != tt.want {
			t.Fatalf("lua(%q) = %v, want %v", tt.script, got, tt.want)
		}
	}
}

func TestLuaTimeout(t *testing.T) {
	_, err := run(t, "", fakeEnv{}, spec{"lua", obj("script", "while true do end return 1", "timeout_ms", 20)})
	if !errors.Is(err, fault.ErrActionParameter) {
		t.Fatalf("lua timeout err = %v", err)
	}
}

func TestUnknownAction(t *testing.T) {
	_, err := Compile("frobnicate", nil)
	if !errors.Is(err, fault.ErrUnknownAction) {
		t.Fatalf("Compile err = %v", err)
	}
	if !strings.Contains(err.Error(), "known: delta, findMaxPattern") {
		t.Fatalf("Compile err = %v, want the known action names", err)
	}
	if Known("frobnicate") || !Known("r_merge") {
		t.Fatalf("Known reports the wrong registry")
	}
	if _, err := Apply("v", []Step{{Name: "frobnicate"}}, fakeEnv{}); !errors.Is(err, fault.ErrUnknownAction) {
		t.Fatalf("Apply err = %v", err)
	}
}

func TestReads(t *testing.T) {
	st, err := Compile("delta", obj("fromKeys", []any{"a", "b"}))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(st.Reads) != 2 || st.Reads[0] != "a" || st.Reads[1] != "b" {
		t.Fatalf("Reads = %v", st.Reads)
	}
}
