// Package parse holds the commands that run a rule file over log files.
package parse

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/clipper/internal/config"
	"github.com/flarebyte/clipper/internal/discover"
	"github.com/flarebyte/clipper/internal/fault"
	"github.com/flarebyte/clipper/internal/report"
)

// Commands returns fresh instances of every parse command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		filesCmd(),
		singleFileCmd(),
		toCSVCmd(),
		allFoldersCmd(),
		recentFilesCmd(),
	}
}

func jobName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func filesCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "parse_files <dir> <rule>",
		Short:         "Parse the log files of a folder and print each record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, rule := args[0], args[1]
			job := report.Job{Name: jobName(dir), Rule: rule}
			paths, err := discover.Files(dir, o.discoverOptions())
			if err == nil {
				job = o.runJob(cmd, jobSpec{name: job.Name, rule: rule, paths: paths})
			} else {
				job.Err = err
			}
			return o.finish(cmd, []report.Job{job})
		},
	}
	o.addCommon(cmd)
	o.addDiscovery(cmd)
	o.addConsole(cmd)
	cmd.Flags().BoolVar(&o.recursive, "recursive", false, "Descend into subfolders")
	return cmd
}

func singleFileCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "parse_single_file <file> <rule>",
		Short:         "Parse one log file and print its record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, rule := args[0], args[1]
			job := o.runJob(cmd, jobSpec{name: jobName(file), rule: rule, paths: []string{file}})
			return o.finish(cmd, []report.Job{job})
		},
	}
	o.addCommon(cmd)
	o.addConsole(cmd)
	return cmd
}

func toCSVCmd() *cobra.Command {
	o := &options{recursive: true}
	cmd := &cobra.Command{
		Use:           "parse_to_csv <dir> <rule> <outputCsv>",
		Short:         "Parse every log file under a folder into one CSV file",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, rule, output := args[0], args[1], args[2]
			job := report.Job{Name: jobName(dir), Rule: rule}
			paths, err := discover.Files(dir, o.discoverOptions())
			if err == nil {
				job = o.runJob(cmd, jobSpec{name: job.Name, rule: rule, output: output, paths: paths})
			} else {
				job.Err = err
			}
			return o.finish(cmd, []report.Job{job})
		},
	}
	o.addCommon(cmd)
	o.addDiscovery(cmd)
	return cmd
}

func allFoldersCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "parse_all_folders <config>",
		Short:         "Run every job of a run configuration",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runConfig(cmd, args[0], false)
		},
	}
	o.addCommon(cmd)
	return cmd
}

func recentFilesCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "parse_recent_files <config>",
		Short: "Run every job of a run configuration on recently modified files",
		Long: "Like parse_all_folders, but only files modified inside the job's window are parsed.\n" +
			"The window is since/until (YYYY-MM-DD, inclusive) or the last N days; one day when neither is set.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runConfig(cmd, args[0], true)
		},
	}
	o.addCommon(cmd)
	return cmd
}

// runConfig runs the jobs one after another. A failing job is recorded and
// the next one still runs.
func (o *options) runConfig(cmd *cobra.Command, path string, recent bool) error {
	run, err := config.LoadRun(path)
	if err != nil {
		return runExitError{code: exitCodeExecErr, msg: fault.Message(err)}
	}
	now := time.Now()
	var jobs []report.Job
	for _, res := range run.Resolve() {
		paths, err := jobPaths(res, recent, now)
		if err != nil {
			jobs = append(jobs, report.Job{Name: res.Name, Rule: res.Rule, Err: err})
			continue
		}
		jobs = append(jobs, o.runJob(cmd, jobSpec{
			name:         res.Name,
			rule:         res.Rule,
			output:       res.Output,
			paths:        paths,
			fields:       res.Fields,
			workers:      run.Workers,
			sourceOffset: run.SourceOffset,
		}))
	}
	return o.finish(cmd, jobs)
}

func jobPaths(res config.Resolved, recent bool, now time.Time) ([]string, error) {
	paths, err := discover.Files(res.Folder, res.Discover)
	if err != nil || !recent {
		return paths, err
	}
	w, err := recentWindow(res, now)
	if err != nil {
		return nil, err
	}
	return discover.Recent(paths, w), nil
}

func recentWindow(res config.Resolved, now time.Time) (discover.Window, error) {
	if res.Since != "" || res.Until != "" {
		w, err := discover.ParseWindow(res.Since, res.Until)
		if err != nil {
			return discover.Window{}, fmt.Errorf("%w: job %s: %v", fault.ErrConfig, res.Name, err)
		}
		return w, nil
	}
	days := res.Days
	if days == 0 {
		days = 1
	}
	return discover.LastDays(now, days), nil
}
