package root

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/clipper/cmd/clipper/diagnose"
	"github.com/flarebyte/clipper/cmd/clipper/parse"
	"github.com/flarebyte/clipper/cmd/clipper/version"
	"github.com/flarebyte/clipper/internal/logging"
)

// NewRootCmd creates the root command for clipper.
func NewRootCmd() *cobra.Command {
	var (
		verbose bool
		logger  *zap.Logger
	)
	cmd := &cobra.Command{
		Use:   "clipper",
		Short: "Extract structured fields from capture logs with declarative clipping rules",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.New(verbose)
			if err != nil {
				return err
			}
			cmd.SetContext(logging.With(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(version.VersionCmd)
	cmd.AddCommand(diagnose.Cmd)
	for _, c := range parse.Commands() {
		cmd.AddCommand(c)
	}
	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}
