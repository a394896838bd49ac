//go:build !lambda

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"blueprint-optimizer/internal/buildorder"
)

var (
	configPath string
	jsonOut    bool
	verbose    bool
	horizon    int
	count      int
	withPlan   bool

	appCfg *Config
)

var rootCmd = &cobra.Command{
	Use:   "blueprint-optimizer",
	Short: "Find the best bot build order for each blueprint",
	Long: `Searches every blueprint in a file for the build order that collects the most
geodes within a fixed number of minutes.

Blueprint files may be plain text (one "Blueprint N: Each ore robot costs ..." entry
per blueprint), JSON or YAML.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadAppConfig,
}

var qualityCmd = &cobra.Command{
	Use:   "quality <file>",
	Short: "Sum id × geodes over all blueprints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := flagOr(cmd, "horizon", horizon, appCfg.Runner.QualityHorizon)
		return runMode(cmd, ModeQuality, args[0], h, 0, nil)
	},
}

var productCmd = &cobra.Command{
	Use:   "product <file>",
	Short: "Multiply the geodes of the first blueprints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := flagOr(cmd, "horizon", horizon, appCfg.Runner.ProductHorizon)
		n := flagOr(cmd, "count", count, appCfg.Runner.ProductCount)
		if n < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		return runMode(cmd, ModeProduct, args[0], h, n, nil)
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve <file> [id]",
	Short: "Report every blueprint (or one) with its build order",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := flagOr(cmd, "horizon", horizon, appCfg.Runner.QualityHorizon)
		var only *int
		if len(args) == 2 {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid blueprint id %q", args[1])
			}
			only = &id
		}
		return runMode(cmd, ModeSolve, args[0], h, 0, only)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./blueprint-optimizer.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print search statistics to stderr")
	rootCmd.PersistentFlags().IntVar(&horizon, "horizon", 0, "Minutes available (default from config)")

	productCmd.Flags().IntVar(&count, "count", 0, "How many leading blueprints to multiply (default from config)")
	solveCmd.Flags().BoolVar(&withPlan, "plan", false, "Print the build order of each blueprint")

	rootCmd.AddCommand(qualityCmd, productCmd, solveCmd)
}

func loadAppConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("json") {
		cfg.Output.JSON = jsonOut
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Output.Verbose = verbose
	}
	if cmd.Flags().Changed("plan") {
		cfg.Output.Plan = withPlan
	}
	if cfg.Output.Plan {
		cfg.Search.TrackPlan = true
	}
	Verbose = cfg.Output.Verbose
	if !cfg.Output.Color || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	appCfg = cfg
	return nil
}

// flagOr returns the flag value if it was set on the command line, else def.
func flagOr(cmd *cobra.Command, name string, val, def int) int {
	if cmd.Flags().Changed(name) {
		return val
	}
	return def
}

func runMode(cmd *cobra.Command, mode Mode, path string, h, n int, only *int) error {
	if h < 0 {
		return fmt.Errorf("--horizon must not be negative")
	}
	bps, err := LoadBlueprints(path)
	if err != nil {
		return err
	}
	if only != nil {
		bps = filterBlueprints(bps, *only)
		if len(bps) == 0 {
			return fmt.Errorf("blueprint %d not found in %s", *only, path)
		}
	}
	fmt.Fprintf(logw(), "Loaded %d blueprints from %s\n", len(bps), path)

	var cache *ResultCache
	if appCfg.Cache.Enabled {
		cache, err = OpenCache(appCfg.Cache)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out, err := NewRunner(appCfg, cache).Run(ctx, mode, bps, h, n)
	if err != nil {
		return err
	}
	if appCfg.Output.JSON {
		return WriteJSON(cmd.OutOrStdout(), out)
	}
	WriteTable(cmd.OutOrStdout(), out, appCfg.Output.Plan)
	return nil
}

func filterBlueprints(bps []*buildorder.Blueprint, id int) []*buildorder.Blueprint {
	var out []*buildorder.Blueprint
	for _, bp := range bps {
		if bp.ID == id {
			out = append(out, bp)
		}
	}
	return out
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
