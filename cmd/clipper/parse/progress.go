package parse

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/flarebyte/clipper/internal/batch"
)

const defaultProgressInterval = 500 * time.Millisecond

// progressReporter prints engine progress events, at most one per interval
// except for the final one.
type progressReporter struct {
	interval time.Duration
	w        io.Writer
	job      string

	mu   sync.Mutex
	last time.Time
}

func newProgressReporter(w io.Writer, job string) *progressReporter {
	return &progressReporter{interval: defaultProgressInterval, w: w, job: job}
}

func (p *progressReporter) emit(ev batch.Progress) {
	if p == nil || p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if ev.State != batch.Done && !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return
	}
	p.last = now
	_, _ = fmt.Fprintf(p.w, "progress job=%s state=%s processed=%d/%d succeeded=%d failed=%d elapsed=%s\n",
		p.job, ev.State, ev.Processed, ev.Total, ev.Succeeded, ev.Failed, ev.Elapsed.Round(time.Millisecond))
}
