package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/delivery-heatmap/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Normalize the raw dump into a delivery table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyPathFlags(cmd)

		st, err := pipeline.New(cfg).Extract(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Kept %d records for %s (%d other destinations dropped, %d without delivered time)\n",
			st.Kept, cfg.Collect.Destination, st.Dropped, st.MissingDelivered)
		fmt.Printf("Wrote %s\n", cfg.Paths.Normalized)
		return nil
	},
}

func init() {
	addPathFlags(extractCmd, "raw", "normalized", "manifest")
	rootCmd.AddCommand(extractCmd)
}
