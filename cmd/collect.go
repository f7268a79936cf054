package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/delivery-heatmap/internal/model"
	"github.com/sells-group/delivery-heatmap/internal/pipeline"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch delivered trackings from AfterShip",
	Long:  "Walks backwards through created_at windows until the target number of unique trackings is reached, then writes the raw dump and run manifest.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyPathFlags(cmd)
		if err := cfg.Validate("collect"); err != nil {
			return err
		}

		opts, err := collectOptions(cmd)
		if err != nil {
			return err
		}

		m, err := pipeline.New(cfg).Collect(ctx, opts)
		if m != nil {
			printManifest(m)
		}
		hintRerun(err)
		return err
	},
}

func addCollectFlags(cmd *cobra.Command) {
	cmd.Flags().Int("target", 0, "number of unique trackings to collect (default from config)")
	cmd.Flags().Int("windows", 0, "maximum number of windows to walk (default from config)")
	cmd.Flags().String("tag", "", "AfterShip tag filter, empty for none (default from config)")
	cmd.Flags().Bool("save-partial", false, "write the records gathered so far when collection fails")
}

func collectOptions(cmd *cobra.Command) (pipeline.CollectOptions, error) {
	var opts pipeline.CollectOptions
	var err error
	if opts.TargetCount, err = cmd.Flags().GetInt("target"); err != nil {
		return opts, err
	}
	if opts.MaxWindows, err = cmd.Flags().GetInt("windows"); err != nil {
		return opts, err
	}
	if opts.SavePartial, err = cmd.Flags().GetBool("save-partial"); err != nil {
		return opts, err
	}
	if cmd.Flags().Changed("tag") {
		tag, _ := cmd.Flags().GetString("tag")
		opts.Tag = &tag
	}
	return opts, nil
}

func printManifest(m *model.Manifest) {
	fmt.Printf("Run %s: %s\n", m.RunID, m.Status)
	fmt.Printf("  Windows:    %d\n", m.Windows)
	fmt.Printf("  Pages:      %d\n", m.Pages)
	fmt.Printf("  Records:    %d (target %d)\n", m.Records, m.TargetCount)
	fmt.Printf("  Duplicates: %d\n", m.Duplicates)
	if m.Error != "" {
		fmt.Printf("  Error:      %s\n", m.Error)
	}
}

func init() {
	addCollectFlags(collectCmd)
	addPathFlags(collectCmd, "raw", "manifest")
	rootCmd.AddCommand(collectCmd)
}
