package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/delivery-heatmap/internal/config"
	"github.com/sells-group/delivery-heatmap/internal/resilience"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "delivery-heatmap",
	Short:        "Delivered-shipment heatmap pipeline",
	Long:         "Collects delivered trackings from AfterShip, normalizes them to destination addresses, geocodes them through a persistent cache and renders an HTML heatmap.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// pathFlags maps path flag names onto the config fields they override.
func pathFlags() map[string]*string {
	return map[string]*string{
		"raw":        &cfg.Paths.Raw,
		"normalized": &cfg.Paths.Normalized,
		"geocoded":   &cfg.Paths.Geocoded,
		"out":        &cfg.Paths.Heatmap,
		"geojson":    &cfg.Paths.GeoJSON,
		"shapefile":  &cfg.Paths.Shapefile,
		"xlsx":       &cfg.Paths.XLSX,
		"manifest":   &cfg.Paths.Manifest,
	}
}

var pathFlagUsage = map[string]string{
	"raw":        "raw AfterShip dump (JSON)",
	"normalized": "normalized delivery table (CSV)",
	"geocoded":   "geocoded delivery table (CSV)",
	"out":        "heatmap HTML output",
	"geojson":    "GeoJSON point layer output (empty to skip)",
	"shapefile":  "ESRI shapefile output (empty to skip)",
	"xlsx":       "geocoded workbook output (empty to skip)",
	"manifest":   "collection run manifest (YAML)",
}

// addPathFlags registers the named path flags on cmd. Defaults come from config.
func addPathFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		cmd.Flags().String(name, "", pathFlagUsage[name]+" (default from config)")
	}
}

// applyPathFlags copies explicitly set path flags into cfg.
func applyPathFlags(cmd *cobra.Command) {
	for name, dst := range pathFlags() {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		*dst = f.Value.String()
	}
}

// hintRerun tells the operator when a failure is worth retrying.
func hintRerun(err error) {
	if err != nil && resilience.IsTransient(err) {
		fmt.Fprintln(os.Stderr, "The failure looks transient. Rerun the command; cached geocodes are kept.")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
