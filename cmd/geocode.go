package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/delivery-heatmap/internal/pipeline"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode the delivery table through the cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyPathFlags(cmd)
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		st, err := pipeline.New(cfg).Geocode(ctx)
		fmt.Printf("Geocoded %d records: %d cache hits, %d provider calls, %d matched, %d without match\n",
			st.Records, st.CacheHits, st.Calls, st.Matched, st.NoMatch)
		if err != nil {
			hintRerun(err)
			return err
		}
		fmt.Printf("Wrote %s\n", cfg.Paths.Geocoded)
		return nil
	},
}

func init() {
	addPathFlags(geocodeCmd, "normalized", "geocoded", "xlsx")
	rootCmd.AddCommand(geocodeCmd)
}
