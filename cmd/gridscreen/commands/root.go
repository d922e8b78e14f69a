// Package commands implements the gridscreen CLI commands.
package commands

import (
	"fmt"
	"maps"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/gridscreen/pkg/config"
	"github.com/Sumatoshi-tech/gridscreen/pkg/version"
)

const flagConfig = "config"

// loggingBindings maps the persistent logging flags to config keys.
var loggingBindings = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
}

// NewRootCommand builds the gridscreen command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(initObservability)
}

func newRootCommandWithDeps(initObs observabilityInit) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridscreen",
		Short: "Screen hourly electricity demand series for data-quality anomalies",
		Long: `gridscreen flags suspicious values in hourly electricity demand series.

Commands:
  screen    Screen CSV series files and write labeled copies
  serve     Serve screening over HTTP
  config    Validate or show configuration
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "Config file (default: ./.gridscreen.yaml, then $HOME/.gridscreen.yaml)")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.String("log-format", config.DefaultLogFormat, "Log format: text, json")

	rootCmd.AddCommand(newScreenCommand(initObs))
	rootCmd.AddCommand(newServeCommand(initObs))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())

			return err
		},
	}
}

// loadConfig loads the configuration named by --config, overridden by the
// explicitly set flags listed in bindings.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("read --%s: %w", flagConfig, err)
	}

	all := maps.Clone(loggingBindings)
	maps.Copy(all, bindings)

	return config.Load(path, config.WithFlags(cmd.Flags(), all))
}

// screeningBindings registers one flag per screening parameter on fs and
// returns their config bindings.
func screeningBindings(fs *pflag.FlagSet) map[string]string {
	fs.Int("short-hour-window", config.DefaultShortHourWindow, "Half width in hours of the short rolling median")
	fs.Int("iqr-hours", config.DefaultIQRHours, "Half width in hours of the rolling IQR windows")
	fs.Int("n-days", config.DefaultNDays, "Days in the diurnal template and the long rolling median")
	fs.Float64("global-dem-cut", config.DefaultGlobalDemCut, "Global extreme multiplier of the series median")
	fs.Float64("local-dem-cut-up", config.DefaultLocalDemCutUp, "Local band upper IQR multiplier")
	fs.Float64("local-dem-cut-down", config.DefaultLocalDemCutDown, "Local band lower IQR multiplier")
	fs.Float64("delta-multiplier", config.DefaultDeltaMultiplier, "Double-sided delta IQR multiplier")
	fs.Float64("delta-single-multiplier", config.DefaultDeltaSingleMultiplier, "Single-sided delta IQR multiplier")
	fs.Float64("rel-multiplier", config.DefaultRelMultiplier, "Relative deviation jump multiplier")
	fs.Int("anomalous-regions-width", config.DefaultAnomalousRegionsWidth, "Half width in hours of the anomalous region window")
	fs.Float64("anomalous-pct", config.DefaultAnomalousPct, "Good-data fraction at or below which a region is anomalous")

	return map[string]string{
		"short-hour-window":       "screening.short_hour_window",
		"iqr-hours":               "screening.iqr_hours",
		"n-days":                  "screening.n_days",
		"global-dem-cut":          "screening.global_dem_cut",
		"local-dem-cut-up":        "screening.local_dem_cut_up",
		"local-dem-cut-down":      "screening.local_dem_cut_down",
		"delta-multiplier":        "screening.delta_multiplier",
		"delta-single-multiplier": "screening.delta_single_multiplier",
		"rel-multiplier":          "screening.rel_multiplier",
		"anomalous-regions-width": "screening.anomalous_regions_width",
		"anomalous-pct":           "screening.anomalous_pct",
	}
}
