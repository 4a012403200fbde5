package main

import (
	"context"

	"github.com/aretw0/stanza/internal/cli"
	"github.com/aretw0/stanza/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <script>...",
	Short: "Run the scenarios of one or more scripts",
	Long: `Reads the scripts, runs their scenarios concurrently and prints a summary.
The command fails when a scenario fails or the run is aborted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer eng.Close()

		out := outputFor(cmd)
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && out.Styled {
			tui.PrintBanner(cmd.ErrOrStderr(), versionString())
		}

		ctx, stop := cli.NewSignalContext(context.Background())
		defer stop()

		_, err = cli.RunScripts(ctx, eng.Engine, args, out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("workers", 0, "Number of scenarios run concurrently")
	runCmd.Flags().Bool("stop-on-failure", false, "Cancel the remaining scenarios once one fails")
	runCmd.Flags().StringToString("var", nil, "Global variables as name=value")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
