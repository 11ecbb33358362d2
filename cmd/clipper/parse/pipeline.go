package parse

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/clipper/internal/batch"
	"github.com/flarebyte/clipper/internal/coerce"
	"github.com/flarebyte/clipper/internal/fault"
	"github.com/flarebyte/clipper/internal/logging"
	"github.com/flarebyte/clipper/internal/record"
	"github.com/flarebyte/clipper/internal/report"
	"github.com/flarebyte/clipper/internal/rules"
)

// jobSpec is one batch: a rule file applied to a list of paths, written to
// a CSV file or, when output is empty, printed to the console.
type jobSpec struct {
	name         string
	rule         string
	output       string
	paths        []string
	fields       []string
	workers      int
	sourceOffset string
}

// runJob loads the rules, parses every path and returns the job for the
// summary and report. Errors end up in Job.Err so that multi-job runs keep
// going.
func (o *options) runJob(cmd *cobra.Command, spec jobSpec) report.Job {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.From(ctx).With(zap.String("job", spec.name))
	j := report.Job{Name: spec.name, Rule: spec.rule}

	rs, err := rules.Load(spec.rule)
	if err != nil {
		j.Err = err
		return j
	}
	j.Columns = rs.Columns()

	p, err := o.parser(rs, log, spec)
	if err != nil {
		j.Err = err
		return j
	}

	e := &batch.Engine{
		Parser:           p,
		Workers:          o.workers,
		Logger:           log,
		FailOnFieldError: o.strictFields,
	}
	if !cmd.Flags().Changed("workers") && spec.workers > 0 {
		e.Workers = spec.workers
	}
	if o.progress {
		e.OnProgress = newProgressReporter(cmd.ErrOrStderr(), spec.name).emit
	}

	if spec.output != "" {
		j.Stats, j.Err = e.RunToCSV(ctx, spec.paths, spec.output)
		return j
	}
	sink, err := o.consoleSink(cmd.OutOrStdout())
	if err != nil {
		j.Err = err
		return j
	}
	j.Stats, j.Err = e.RunWithSink(ctx, spec.paths, sink)
	return j
}

func (o *options) parser(rs *rules.RuleSet, log *zap.Logger, spec jobSpec) (*record.Parser, error) {
	popts := []record.Option{record.WithLogger(log)}
	fields := o.fields
	if len(fields) == 0 {
		fields = spec.fields
	}
	if len(fields) > 0 {
		if _, err := rs.Closure(fields); err != nil {
			return nil, fmt.Errorf("%w: --fields: %v", fault.ErrConfig, err)
		}
		popts = append(popts, record.WithFields(fields...))
	}
	offset := o.sourceOffset
	if offset == "" {
		offset = spec.sourceOffset
	}
	if offset != "" {
		loc, err := coerce.ParseOffset(offset)
		if err != nil {
			return nil, fmt.Errorf("%w: source offset: %v", fault.ErrConfig, err)
		}
		popts = append(popts, record.WithLocation(loc))
	}
	return record.NewParser(rs, popts...), nil
}

func (o *options) consoleSink(w io.Writer) (batch.Sink, error) {
	tpl := batch.DefaultConsoleTemplate
	if o.template != "" {
		var err error
		if tpl, err = batch.LoadConsoleTemplate(o.template); err != nil {
			return nil, err
		}
	}
	return batch.NewConsoleSink(w, tpl), nil
}

// finish prints the summary of every job, writes the report when asked and
// turns the results into the command error.
func (o *options) finish(cmd *cobra.Command, jobs []report.Job) error {
	w := cmd.OutOrStdout()
	for _, j := range jobs {
		printSummary(w, j)
	}
	if o.report != "" {
		if err := report.Write(o.report, jobs); err != nil {
			return runExitError{code: exitCodeExecErr, msg: fmt.Sprintf("write report: %v", err)}
		}
	}
	return evaluateRunExit(jobs, o.failOnError)
}

func printSummary(w io.Writer, j report.Job) {
	s := j.Stats
	_, _ = fmt.Fprintf(w, "job=%s attempted=%d succeeded=%d failed=%d elapsed=%s",
		j.Name, s.Attempted, s.Succeeded, s.Failed, s.Elapsed.Round(time.Millisecond))
	if s.Output != "" {
		_, _ = fmt.Fprintf(w, " output=%s rows=%d", s.Output, s.Rows)
	}
	_, _ = fmt.Fprintln(w)
	if j.Err == nil && s.Attempted == 0 {
		_, _ = fmt.Fprintln(w, "  no matching files")
	}
	for _, f := range s.Failures {
		_, _ = fmt.Fprintf(w, "  failed %s [%s] %s\n", f.Path, f.Kind, f.Message)
	}
}
