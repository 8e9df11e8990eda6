package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funscreener/internal/export"
	"github.com/sells-group/funscreener/internal/marketcap"
)

var (
	queryCountry  string
	queryCategory string
	queryTop      int
	queryFormat   string
	queryOut      string
	queryYear     int
	queryMonth    int
	queryMinUSD   float64
	queryAsOf     string
	queryExact    bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a market-cap screen and print or export the result",
}

var queryLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Latest ranking for a country and category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *marketcap.Service) ([]marketcap.Entry, error) {
			return svc.GetLatestMarketCap(ctx, queryCountry, queryCategory, topFlag(cmd))
		})
	},
}

var queryHistoricalCmd = &cobra.Command{
	Use:   "historical",
	Short: "Ranking as of the first day of a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *marketcap.Service) ([]marketcap.Entry, error) {
			return svc.GetHistoricalMarketCap(ctx, queryCountry, queryCategory, queryYear, queryMonth, topFlag(cmd))
		})
	},
}

var queryThresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Ranking above an explicit USD-millions cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		asof := queryAsOf
		if asof == "" {
			asof = time.Now().UTC().Format(marketcap.DateLayout)
		}
		return withService(cmd, func(ctx context.Context, svc *marketcap.Service) ([]marketcap.Entry, error) {
			return svc.GetMarketCapByThreshold(ctx, queryCountry, queryMinUSD, asof, !queryExact, topFlag(cmd))
		})
	},
}

// topFlag returns nil unless --top was given explicitly.
func topFlag(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("top") {
		return nil
	}
	top := queryTop
	return &top
}

func withService(cmd *cobra.Command, run func(context.Context, *marketcap.Service) ([]marketcap.Entry, error)) error {
	format, err := export.ParseFormat(queryFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	env, err := initScreener(ctx, "query")
	if err != nil {
		return err
	}
	defer env.Close()

	entries, err := run(ctx, env.Service)
	if err != nil {
		return err
	}

	zap.L().Debug("query complete", zap.Int("entries", len(entries)), zap.String("format", string(format)))
	return export.WriteFile(queryOut, format, entries)
}

func init() {
	for _, c := range []*cobra.Command{queryLatestCmd, queryHistoricalCmd, queryThresholdCmd} {
		c.Flags().StringVar(&queryCountry, "country", marketcap.GlobalCountry, "ISO 3166-1 alpha-2 code or Global")
		c.Flags().IntVar(&queryTop, "top", 0, "limit to the N largest companies")
		c.Flags().StringVar(&queryFormat, "format", "json", "output format: json, yaml or xlsx")
		c.Flags().StringVar(&queryOut, "out", "", "output file (default stdout; required for xlsx)")
		queryCmd.AddCommand(c)
	}

	for _, c := range []*cobra.Command{queryLatestCmd, queryHistoricalCmd} {
		c.Flags().StringVar(&queryCategory, "category", "", "market cap bucket: mega, large or mid")
		_ = c.MarkFlagRequired("category")
	}

	queryHistoricalCmd.Flags().IntVar(&queryYear, "year", 0, "calendar year")
	queryHistoricalCmd.Flags().IntVar(&queryMonth, "month", 0, "calendar month (1-12)")
	_ = queryHistoricalCmd.MarkFlagRequired("year")
	_ = queryHistoricalCmd.MarkFlagRequired("month")

	queryThresholdCmd.Flags().Float64Var(&queryMinUSD, "min-usd", 0, "minimum USD market cap in millions")
	queryThresholdCmd.Flags().StringVar(&queryAsOf, "asof", "", "as-of date YYYY-MM-DD (default today UTC)")
	queryThresholdCmd.Flags().BoolVar(&queryExact, "exact", false, "match the as-of date exactly instead of the fuzzy window")
	_ = queryThresholdCmd.MarkFlagRequired("min-usd")

	rootCmd.AddCommand(queryCmd)
}
