package parse

import (
	"github.com/spf13/cobra"

	"github.com/flarebyte/clipper/internal/discover"
)

// options holds the flags shared by the parse commands. Each command gets
// its own instance.
type options struct {
	workers      int
	ext          string
	fields       []string
	strictFields bool
	report       string
	template     string
	progress     bool
	noGitignore  bool
	recursive    bool
	sourceOffset string
	failOnError  bool
}

func (o *options) addCommon(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&o.workers, "workers", 0, "Worker pool size (default min(32, 2*CPUs))")
	f.StringSliceVar(&o.fields, "fields", nil, "Parse only these fields and their dependencies")
	f.BoolVar(&o.strictFields, "strict-fields", false, "Count a file as failed when any field fails")
	f.StringVar(&o.report, "report", "", "Write a YAML run report to this path")
	f.BoolVar(&o.progress, "progress", false, "Print progress lines to stderr")
	f.StringVar(&o.sourceOffset, "source-offset", "", "UTC offset of datetimes in the logs, e.g. +08:00; converted to UTC")
	f.BoolVar(&o.failOnError, "fail-on-error", false, "Exit with code 2 when any file failed")
}

func (o *options) addDiscovery(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.ext, "ext", discover.DefaultExt, "Input file extension")
	f.BoolVar(&o.noGitignore, "no-gitignore", false, "Do not apply .gitignore files")
}

func (o *options) addConsole(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.template, "template", "", "Twig template used to print each record")
}

func (o *options) discoverOptions() discover.Options {
	return discover.Options{Ext: o.ext, Recursive: o.recursive, NoGitignore: o.noGitignore}
}
