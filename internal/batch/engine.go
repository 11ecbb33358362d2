// Package batch runs a record parser over many files with a bounded worker
// pool and funnels the results into a single sink.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flarebyte/clipper/internal/fault"
	"github.com/flarebyte/clipper/internal/record"
)

const (
	maxDefaultWorkers    = 32
	defaultProgressEvery = 100
)

// DefaultWorkers returns min(32, 2*NumCPU).
func DefaultWorkers() int {
	n := 2 * runtime.NumCPU()
	if n > maxDefaultWorkers {
		n = maxDefaultWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Engine schedules parses. Configure it before the first run; an Engine runs
// one batch at a time.
type Engine struct {
	Parser *record.Parser
	// Workers is the pool size. Zero means DefaultWorkers.
	Workers int
	Logger  *zap.Logger
	// ProgressEvery is the number of completed files between progress
	// events. Zero means 100.
	ProgressEvery int
	OnProgress    func(Progress)
	// FailOnFieldError counts a file as failed when any field failed.
	FailOnFieldError bool

	state atomic.Int32
}

// Outcome is the terminal result of one file.
type Outcome struct {
	Path   string
	Status Status
	Result *record.Result
	Err    error
}

// State returns the current batch state.
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return DefaultWorkers()
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) progressEvery() int {
	if e.ProgressEvery > 0 {
		return e.ProgressEvery
	}
	return defaultProgressEvery
}

// Run parses paths without writing rows anywhere. Statistics are returned.
func (e *Engine) Run(ctx context.Context, paths []string) (Stats, error) {
	return e.RunWithSink(ctx, paths, nil)
}

// RunToCSV parses paths into a CSV file at output. The header is written
// before any row, even when no file succeeds.
func (e *Engine) RunToCSV(ctx context.Context, paths []string, output string) (Stats, error) {
	sink, err := NewCSVSink(output, e.Parser.Rules().Columns())
	if err != nil {
		return Stats{Output: output}, err
	}
	st, err := e.RunWithSink(ctx, paths, sink)
	st.Output = output
	st.Rows = sink.Rows()
	return st, err
}

// RunWithSink parses paths and hands every succeeded outcome to sink, from a
// single goroutine. A sink error stops the batch; the statistics gathered so
// far are returned with it. sink may be nil.
func (e *Engine) RunWithSink(ctx context.Context, paths []string, sink Sink) (Stats, error) {
	log := e.logger()
	tr := newTracker(uuid.NewString(), len(paths), e.Parser.Rules().Columns())
	e.state.Store(int32(Running))
	log.Info("batch started",
		zap.String("run_id", tr.runID),
		zap.Int("files", len(paths)),
		zap.Int("workers", e.workers()))

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan string)
	outcomes := make(chan Outcome)

	g.Go(func() error {
		defer close(queue)
		for _, p := range paths {
			select {
			case queue <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		e.state.Store(int32(Draining))
		return nil
	})

	var wg sync.WaitGroup
	for w := 0; w < e.workers(); w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for p := range queue {
				o := e.process(p)
				select {
				case outcomes <- o:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	every := e.progressEvery()
	g.Go(func() error {
		for o := range outcomes {
			tr.record(o)
			if o.Status == Failed {
				log.Warn("file failed",
					zap.String("path", o.Path),
					zap.String("kind", string(fault.Classify(o.Err))),
					zap.Error(o.Err))
			}
			if sink != nil && o.Status == Succeeded {
				if err := sink.Write(o); err != nil {
					return fmt.Errorf("%w: %s: %v", fault.ErrWrite, o.Path, err)
				}
			}
			if n := tr.processed.Load(); n%int64(every) == 0 {
				e.emit(tr.progress(e.State()))
			}
		}
		return nil
	})

	runErr := g.Wait()
	if sink != nil {
		if err := sink.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("%w: %v", fault.ErrWrite, err)
		}
	}
	e.state.Store(int32(Done))
	e.emit(tr.progress(Done))

	st := tr.stats()
	fields := []zap.Field{
		zap.String("run_id", st.RunID),
		zap.Int("attempted", st.Attempted),
		zap.Int("succeeded", st.Succeeded),
		zap.Int("failed", st.Failed),
		zap.Duration("elapsed", st.Elapsed),
	}
	if runErr != nil {
		log.Error("batch stopped", append(fields, zap.Error(runErr))...)
		return st, runErr
	}
	log.Info("batch finished", fields...)
	return st, nil
}

func (e *Engine) emit(p Progress) {
	e.logger().Info("progress",
		zap.String("run_id", p.RunID),
		zap.String("state", p.State.String()),
		zap.Int("processed", p.Processed),
		zap.Int("total", p.Total),
		zap.Int("succeeded", p.Succeeded),
		zap.Int("failed", p.Failed),
		zap.Duration("elapsed", p.Elapsed))
	if e.OnProgress != nil {
		e.OnProgress(p)
	}
}

// process reads and parses one file. Any panic is recovered as a failure of
// that file only.
func (e *Engine) process(path string) (o Outcome) {
	o = Outcome{Path: path, Status: Queued}
	defer func() {
		if r := recover(); r != nil {
			o.Err = fmt.Errorf("panic while %s: %v", o.Status, r)
			o.Status = Failed
			o.Result = nil
		}
	}()
	o.Status = Reading
	text, err := ReadText(path)
	if err != nil {
		o.Status, o.Err = Failed, err
		o.Result = record.Failed(e.Parser.Rules(), err)
		return o
	}
	o.Status = Parsing
	o.Result = e.Parser.Parse(text)
	if e.FailOnFieldError {
		if errs := o.Result.Errors(); len(errs) > 0 {
			o.Status = Failed
			o.Err = fmt.Errorf("field %s: %w", errs[0].Name, errs[0].Err)
			return o
		}
	}
	o.Status = Succeeded
	return o
}
