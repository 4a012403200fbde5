package main

import (
	"github.com/aretw0/stanza/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <script>...",
	Short: "Check that every keyword of the scripts routes and binds",
	Long: `Routes and binds every keyword occurrence of the scripts without invoking
any action, and reports the ones without a single route or with cells left unbound.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer eng.Close()

		return cli.ValidateScripts(cmd.Context(), eng.Engine, args, outputFor(cmd))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
