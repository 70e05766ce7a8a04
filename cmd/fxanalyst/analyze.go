package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/fxanalyst/pkg/config"
	"github.com/pario-ai/fxanalyst/pkg/models"
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var marketPath string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "analyze [prompt]",
		Short: "Request an analysis from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			market, err := readMarketData(marketPath)
			if err != nil {
				return err
			}

			requester, c, err := newRequester(cmd.Context(), cfg, !noCache)
			if err != nil {
				return err
			}
			if c != nil {
				defer func() { _ = c.Close() }()
			}

			res, err := requester.Analyze(cmd.Context(), strings.Join(args, " "), market)
			if err != nil {
				return err
			}
			if res.Cached {
				fmt.Fprintln(cmd.ErrOrStderr(), "(served from cache)")
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&marketPath, "market", "m", "", "JSON file with an array of OHLC candles")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	return cmd
}

func readMarketData(path string) ([]models.Candle, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market data: %w", err)
	}
	var candles []models.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("parse market data: %w", err)
	}
	return candles, nil
}
