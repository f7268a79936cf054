package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/delivery-heatmap/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the geocode cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size per provider",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openCache(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		return printCacheStats(cmd.Context(), os.Stdout, c)
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <query>",
	Short: "Look up one geocode query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		return printCacheEntry(cmd.Context(), os.Stdout, c, args[0])
	},
}

func openCache(ctx context.Context) (store.Cache, error) {
	return store.Open(ctx, store.Options{
		Driver:      cfg.Cache.Driver,
		Path:        cfg.Cache.Path,
		DatabaseURL: cfg.Cache.DatabaseURL,
	})
}

func printCacheStats(ctx context.Context, w io.Writer, c store.Cache) error {
	total, err := c.Count(ctx)
	if err != nil {
		return eris.Wrap(err, "cache stats: count")
	}
	byProvider, err := c.ProviderCounts(ctx)
	if err != nil {
		return eris.Wrap(err, "cache stats: provider counts")
	}

	fmt.Fprintf(w, "Cached queries: %d\n", total)
	names := make([]string, 0, len(byProvider))
	for name := range byProvider {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %d\n", name, byProvider[name])
	}
	return nil
}

func printCacheEntry(ctx context.Context, w io.Writer, c store.Cache, query string) error {
	e, err := c.Get(ctx, query)
	if err != nil {
		return eris.Wrap(err, "cache get")
	}
	if e == nil {
		fmt.Fprintf(w, "%q is not cached\n", query)
		return nil
	}
	fmt.Fprintf(w, "%s\n  lat:      %.6f\n  lon:      %.6f\n  provider: %s\n  cached:   %s\n",
		e.Query, e.Lat, e.Lon, e.Provider, e.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}
