package batch

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/flarebyte/clipper/internal/fault"
)

// Status is the state of one file.
type Status int

const (
	Queued Status = iota
	Reading
	Parsing
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Queued:
		return "queued"
	case Reading:
		return "reading"
	case Parsing:
		return "parsing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// State is the state of a batch.
type State int32

const (
	Idle State = iota
	Running
	// Draining means every path has been queued and in-flight files are
	// finishing.
	Draining
	// Done is reached once every file is terminal and the sink is closed.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Done:
		return "done"
	}
	return "unknown"
}

// Failure describes one failed file.
type Failure struct {
	Path    string
	Kind    fault.Kind
	Message string
	// FieldLevel is set when a field error rejected an otherwise readable
	// file (Engine.FailOnFieldError).
	FieldLevel bool
}

// Stats summarizes a batch.
type Stats struct {
	RunID     string
	Attempted int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	// Output is the CSV path, empty in console mode.
	Output string
	// Rows is the number of data rows written to Output.
	Rows int
	// FieldHits counts, per field, the succeeded files where it resolved.
	FieldHits map[string]int
	// Failures is sorted by path.
	Failures []Failure
}

// Coverage returns the share of succeeded files in which name resolved.
func (s Stats) Coverage(name string) float64 {
	if s.Succeeded == 0 {
		return 0
	}
	return float64(s.FieldHits[name]) / float64(s.Succeeded)
}

// Progress is emitted every Engine.ProgressEvery completed files and once
// at the end.
type Progress struct {
	RunID     string
	State     State
	Processed int
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// tracker aggregates outcomes. Only the aggregator goroutine writes to it;
// the counters may be read concurrently.
type tracker struct {
	runID     string
	total     int
	start     time.Time
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	hits      map[string]int
	failures  []Failure
}

func newTracker(runID string, total int, columns []string) *tracker {
	hits := make(map[string]int, len(columns))
	for _, c := range columns {
		hits[c] = 0
	}
	return &tracker{runID: runID, total: total, start: time.Now(), hits: hits}
}

func (t *tracker) record(o Outcome) {
	t.processed.Add(1)
	if o.Status != Succeeded {
		t.failed.Add(1)
		t.failures = append(t.failures, Failure{
			Path:       o.Path,
			Kind:       fault.Classify(o.Err),
			Message:    fault.Message(o.Err),
			FieldLevel: fault.FieldLevel(o.Err),
		})
		return
	}
	t.succeeded.Add(1)
	for _, n := range o.Result.Visible() {
		if n.OK() {
			t.hits[n.Name]++
		}
	}
}

func (t *tracker) progress(state State) Progress {
	return Progress{
		RunID:     t.runID,
		State:     state,
		Processed: int(t.processed.Load()),
		Total:     t.total,
		Succeeded: int(t.succeeded.Load()),
		Failed:    int(t.failed.Load()),
		Elapsed:   time.Since(t.start),
	}
}

func (t *tracker) stats() Stats {
	failures := append([]Failure(nil), t.failures...)
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Path != failures[j].Path {
			return failures[i].Path < failures[j].Path
		}
		return failures[i].Message < failures[j].Message
	})
	hits := make(map[string]int, len(t.hits))
	for k, v := range t.hits {
		hits[k] = v
	}
	return Stats{
		RunID:     t.runID,
		Attempted: int(t.processed.Load()),
		Succeeded: int(t.succeeded.Load()),
		Failed:    int(t.failed.Load()),
		Elapsed:   time.Since(t.start),
		FieldHits: hits,
		Failures:  failures,
	}
}
