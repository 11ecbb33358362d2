// Package record resolves every field of a rule set against one input text.
package record

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flarebyte/clipper/internal/action"
	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/extract"
	"github.com/flarebyte/clipper/internal/fault"
	"github.com/flarebyte/clipper/internal/rules"
)

// rawSourceID identifies the input text in the search cache. Field sources
// use their declaration index plus one.
const rawSourceID = 0

// Parser is safe for concurrent use: it holds only read-only configuration.
type Parser struct {
	rules    *rules.RuleSet
	selected map[string]bool
	noCache  bool
	loc      *time.Location
	log      *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithFields limits parsing to the named fields and the fields they depend
// on. Unknown names are ignored; check them with RuleSet.Closure first.
func WithFields(names ...string) Option {
	return func(p *Parser) {
		if len(names) == 0 {
			return
		}
		known := make([]string, 0, len(names))
		for _, n := range names {
			if p.rules.Index(n) >= 0 {
				known = append(known, n)
			}
		}
		p.selected, _ = p.rules.Closure(known)
	}
}

// WithoutCache disables the per-parse marker search cache.
func WithoutCache() Option { return func(p *Parser) { p.noCache = true } }

// WithLocation reads datetimes in loc and converts them to UTC.
func WithLocation(loc *time.Location) Option { return func(p *Parser) { p.loc = loc } }

// WithLogger sets the logger used for field-level diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// NewParser returns a parser for rs.
func NewParser(rs *rules.RuleSet, opts ...Option) *Parser {
	p := &Parser{rules: rs, log: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Rules returns the rule set the parser was built with.
func (p *Parser) Rules() *rules.RuleSet { return p.rules }

// Selected reports whether name is parsed.
func (p *Parser) Selected(name string) bool {
	return p.selected == nil || p.selected[name]
}

// Parse resolves all selected fields: first those not deferred, then the
// deferred ones, each group in declaration order. A failing field is recorded
// and parsing continues.
func (p *Parser) Parse(raw string) *Result {
	run := &parseRun{
		p:   p,
		res: newResult(p.rules),
		raw: raw,
	}
	if !p.noCache {
		run.cache = extract.NewCache()
	}
	fields := p.rules.Fields()
	for _, deferred := range []bool{false, true} {
		for i, f := range fields {
			if f.Deferred != deferred || !p.Selected(f.Name) {
				continue
			}
			run.resolve(i, f)
		}
	}
	if run.cache != nil {
		p.log.Debug("parse cache",
			zap.Int("hits", run.cache.Hits()),
			zap.Int("misses", run.cache.Misses()),
			zap.Int("entries", run.cache.Len()))
	}
	return run.res
}

// parseRun is the state of a single Parse call.
type parseRun struct {
	p     *Parser
	res   *Result
	raw   string
	cache *extract.Cache
}

func (r *parseRun) resolve(i int, f *rules.Field) {
	v, err := r.value(i, f)
	if err != nil {
		r.p.log.Debug("field failed",
			zap.String("field", f.Name),
			zap.String("kind", string(fault.Classify(err))),
			zap.Error(err))
		r.res.fail(f.Name, err)
		return
	}
	r.res.set(f.Name, v)
}

func (r *parseRun) value(i int, f *rules.Field) (any, error) {
	src, err := r.source(f)
	if err != nil {
		return nil, err
	}
	text, err := extract.Clip(src, f.Pairs, r.cache)
	if err != nil {
		return nil, err
	}
	v, err := action.Apply(text, f.Actions, env{run: r, original: text})
	if err != nil {
		return nil, err
	}
	return coerce.CoerceIn(v, f.Type, r.p.loc)
}

func (r *parseRun) source(f *rules.Field) (extract.Source, error) {
	if f.FromRaw() {
		return extract.Source{ID: rawSourceID, Text: r.raw}, nil
	}
	v, ok := r.res.Get(f.Source)
	if !ok || v.Err != nil {
		return extract.Source{}, fmt.Errorf("%w: %q", fault.ErrMissingSourceField, f.Source)
	}
	return extract.Source{ID: r.p.rules.Index(f.Source) + 1, Text: v.Text}, nil
}

// env exposes the record being built to actions.
type env struct {
	run      *parseRun
	original string
}

func (e env) Original() string { return e.original }

func (e env) Lookup(name string) (any, bool) {
	v, ok := e.run.res.Get(name)
	if !ok || v.Err != nil {
		return nil, false
	}
	return v.Value, true
}
