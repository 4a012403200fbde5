package main

import (
	"strings"

	"github.com/aretw0/stanza/internal/cli"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes [name]",
	Short: "List the registered routes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer eng.Close()

		name := strings.Join(args, "")
		if asGraph, _ := cmd.Flags().GetBool("graph"); asGraph {
			return cli.RouteGraph(eng.Engine, name, cmd.OutOrStdout())
		}
		return cli.ListRoutes(eng.Engine, name, outputFor(cmd))
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <cell>...",
	Short: "Show how one keyword occurrence routes and binds",
	Long: `Resolves a keyword without invoking its action. Pass the cells as separate
arguments, or a single tab-delimited script line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := setup(cmd, cli.EngineOptions{})
		if err != nil {
			return err
		}
		defer eng.Close()

		return cli.MatchKeyword(cmd.Context(), eng.Engine, args, outputFor(cmd))
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().Bool("graph", false, "Print the route specificity order as a Mermaid flowchart")
	rootCmd.AddCommand(matchCmd)
}
