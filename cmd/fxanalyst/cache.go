package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/fxanalyst/pkg/cache"
	"github.com/pario-ai/fxanalyst/pkg/config"
)

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			c, err := openCache(cmd.Context(), cfg.Cache)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store:   %s\nTTL:     %s\n", cfg.Cache.Store, c.TTL())
			if stats.Entries != nil {
				fmt.Fprintf(out, "Entries: %d\n", *stats.Entries)
			} else {
				fmt.Fprintln(out, "Entries: unknown")
			}
			fmt.Fprintf(out, "Hits:    %d\nMisses:  %d\n", stats.Hits, stats.Misses)
			return nil
		},
	}

	var expiredOnly bool
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			c, err := openCache(cmd.Context(), cfg.Cache)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			n, err := c.Purge(cmd.Context(), expiredOnly)
			if err != nil {
				return err
			}
			if expiredOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cache entries.\n", n)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", n)
			}
			return nil
		},
	}
	purgeCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired entries")

	var marketPath string
	keyCmd := &cobra.Command{
		Use:   "key [prompt]",
		Short: "Print the cache key a request would use",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			market, err := readMarketData(marketPath)
			if err != nil {
				return err
			}
			fp := cache.Fingerprint{
				Prompt:   strings.Join(args, " "),
				Model:    cfg.Settings.Model,
				Language: cfg.Settings.Language,
			}
			if len(market) > 0 {
				fp.Context = market
			}
			key, err := fp.Key()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Prefix+key)
			return nil
		},
	}
	keyCmd.Flags().StringVarP(&marketPath, "market", "m", "", "JSON file with an array of OHLC candles")

	cmd.AddCommand(statsCmd, purgeCmd, keyCmd)
	return cmd
}
