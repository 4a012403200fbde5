package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/stanza/internal/cli"
	"github.com/aretw0/stanza/internal/config"
	"github.com/aretw0/stanza/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stanza",
	Short: "Stanza runs tab-delimited keyword scripts against declared routes",
	Long: `Stanza matches every line of a keyword script to a route declared as
constant tokens and [parameter] tokens, binds the cells to parameters and
invokes the action behind the route.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file (default ./"+config.DefaultFile+" when present)")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.Bool("debug", false, "Log every dispatcher step at debug level")
	flags.Bool("json", false, "Write machine-readable JSON output")
	flags.Bool("no-color", false, "Disable colours and markdown rendering")

	flags.String("delimiter", "", "Route delimiter: tab or tab-or-space")
	flags.String("strategy", "", "Route search strategy: strict or lazy")
	flags.Bool("strict", false, "Abort the run on keywords without a single route")
	flags.String("severity-threshold", "", "Severity at which a failing keyword stops its scenario")
	flags.StringSlice("routes", nil, "Additional route declaration files")
}

// loadConfig reads the configuration file and applies the flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("delimiter") {
		cfg.Matching.Delimiter, _ = flags.GetString("delimiter")
	}
	if flags.Changed("strategy") {
		cfg.Matching.Strategy, _ = flags.GetString("strategy")
	}
	if flags.Changed("strict") {
		cfg.Validation.StrictScenario, _ = flags.GetBool("strict")
	}
	if flags.Changed("severity-threshold") {
		cfg.Validation.SeverityThreshold, _ = flags.GetString("severity-threshold")
	}
	if flags.Changed("routes") {
		routes, _ := flags.GetStringSlice("routes")
		cfg.Routes = append(cfg.Routes, routes...)
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Runner.Workers, _ = flags.GetInt("workers")
	}
	if flags.Lookup("stop-on-failure") != nil && flags.Changed("stop-on-failure") {
		cfg.Runner.StopOnFailure, _ = flags.GetBool("stop-on-failure")
	}
	if flags.Lookup("var") != nil && flags.Changed("var") {
		vars, _ := flags.GetStringToString("var")
		if cfg.Variables == nil {
			cfg.Variables = make(map[string]string, len(vars))
		}
		for k, v := range vars {
			cfg.Variables[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	return cli.NewLogger(level, format)
}

// setup loads the configuration and builds a sealed engine for cmd.
func setup(cmd *cobra.Command, opts cli.EngineOptions) (*cli.Engine, config.Config, *slog.Logger, error) {
	logger, err := loggerFor(cmd)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, logger, err
	}
	opts.Debug, _ = cmd.Flags().GetBool("debug")
	eng, err := cli.NewEngine(cfg, logger, opts)
	if err != nil {
		return nil, cfg, logger, err
	}
	return eng, cfg, logger, nil
}

func outputFor(cmd *cobra.Command) cli.Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	return cli.Output{
		W:      cmd.OutOrStdout(),
		JSON:   jsonMode,
		Styled: !jsonMode && !noColor && tui.IsTerminal(os.Stdout),
	}
}
