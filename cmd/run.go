package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/delivery-heatmap/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect, extract, geocode and render in one go",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyPathFlags(cmd)
		for _, mode := range []string{"collect", "geocode", "heatmap"} {
			if err := cfg.Validate(mode); err != nil {
				return err
			}
		}

		opts, err := collectOptions(cmd)
		if err != nil {
			return err
		}

		start := time.Now()
		p := pipeline.New(cfg)
		sum, err := p.Run(ctx, opts)
		if sum.Manifest != nil {
			printManifest(sum.Manifest)
		}
		if err != nil {
			hintRerun(err)
			return err
		}

		zap.L().Info("run complete",
			zap.String("run_id", p.RunID()),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Printf("Kept %d records, geocoded %d (%d matched), rendered %d points to %s\n",
			sum.Extract.Kept, sum.Geocode.Records, sum.Geocode.Matched, sum.Points, cfg.Paths.Heatmap)
		return nil
	},
}

func init() {
	addCollectFlags(runCmd)
	addPathFlags(runCmd, "raw", "normalized", "geocoded", "out", "geojson", "shapefile", "xlsx", "manifest")
	rootCmd.AddCommand(runCmd)
}
