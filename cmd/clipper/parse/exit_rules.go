package parse

import (
	"fmt"

	"github.com/flarebyte/clipper/internal/fault"
	"github.com/flarebyte/clipper/internal/report"
)

const (
	exitCodeExecErr  = 1
	exitCodeFailures = 2
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

func totals(jobs []report.Job) (attempted, succeeded, failed int) {
	for _, j := range jobs {
		attempted += j.Stats.Attempted
		succeeded += j.Stats.Succeeded
		failed += j.Stats.Failed
	}
	return
}

// evaluateRunExit maps the job results onto an exit code. Job errors and
// runs where no file could be parsed are execution errors; file failures
// only matter when failOnError is set.
func evaluateRunExit(jobs []report.Job, failOnError bool) error {
	for _, j := range jobs {
		if j.Err != nil {
			return runExitError{code: exitCodeExecErr, msg: fmt.Sprintf("job %s: %s", j.Name, fault.Message(j.Err))}
		}
	}
	attempted, succeeded, failed := totals(jobs)
	if attempted > 0 && succeeded == 0 {
		return runExitError{code: exitCodeExecErr, msg: "no file parsed successfully"}
	}
	if failOnError && failed > 0 {
		return runExitError{code: exitCodeFailures, msg: fmt.Sprintf("%d of %d files failed", failed, attempted)}
	}
	return nil
}
