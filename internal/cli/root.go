package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the smartspend command tree. Configuration is read
// from the environment (and an optional .env file) before any subcommand
// runs.
func NewRootCommand() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:           "smartspend",
		Short:         "Personal expense tracker with spending insights",
		Long:          "Record expenses, review them in a web dashboard or the terminal, and see category\nbreakdowns, budget alerts and a month-end projection.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			LoadEnvFile()
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			app.cfg = cfg
			app.logger = SetupLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			app.out = cmd.OutOrStdout()
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(app),
		newSyncWorkerCmd(app),
		newAddCmd(app),
		newListCmd(app),
		newEditCmd(app),
		newDeleteCmd(app),
		newImportCmd(app),
		newExportCmd(app),
		newInsightsCmd(app),
		newClassifyCmd(app),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		return 1
	}
	return 0
}
