package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/delivery-heatmap/internal/pipeline"
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Render the geocoded table as an HTML heatmap",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyPathFlags(cmd)
		if err := cfg.Validate("heatmap"); err != nil {
			return err
		}

		n, err := pipeline.New(cfg).Render(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Rendered %d points to %s\n", n, cfg.Paths.Heatmap)
		return nil
	},
}

func init() {
	addPathFlags(heatmapCmd, "geocoded", "out", "geojson", "shapefile")
	rootCmd.AddCommand(heatmapCmd)
}
