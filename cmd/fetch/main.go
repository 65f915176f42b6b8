// Package main loads a few pages of one account's activity and prints the
// merged feed, the metrics summary and the daily series.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"xrpl-activity-lab/internal/aggregator"
	"xrpl-activity-lab/internal/config"
	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/ingestion"
	"xrpl-activity-lab/internal/nfttrades"
	"xrpl-activity-lab/internal/normalization"
	"xrpl-activity-lab/internal/reporting"
	"xrpl-activity-lab/internal/tokenhistory"
	"xrpl-activity-lab/internal/xrpl"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	envFile := flag.String("env-file", ".env", "Path to .env file")
	account := flag.String("account", "", "Classic address to load (required)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "XRPL JSON-RPC endpoint (overrides config)")
	pages := flag.Int("pages", 3, "Number of pages to merge")
	head := flag.Int("head", 20, "Number of feed entries to print")
	kinds := flag.String("kinds", "", "Comma-separated transaction kinds to show")
	query := flag.String("q", "", "Free-text filter over the feed")
	window := flag.String("window", "all", "Metrics window: 24h, 7d, 1m, 3m, all")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	outputDir := flag.String("output-dir", "", "Write report.md and CSV files to this directory")

	flag.Parse()

	logger := log.New(os.Stderr, "[fetch] ", log.LstdFlags)

	if !xrpl.ValidAddress(*account) {
		logger.Fatalf("--account %q is not a classic address", *account)
	}
	w, ok := domain.ParseWindow(*window)
	if !ok {
		logger.Fatalf("unknown --window %q", *window)
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *rpcEndpoint != "" {
		cfg.Ledger.RPCEndpoint = *rpcEndpoint
		cfg.Ledger.WSEndpoint = ""
	}
	if cfg.Ledger.RPCEndpoint == "" {
		logger.Fatal("--rpc-endpoint or ledger.rpc_endpoint is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agg := aggregator.New(*account, aggregator.Options{
		Sources:    newSources(cfg),
		Normalizer: normalization.New(normalization.Options{Tags: normalization.NewSourceTags(cfg.SourceTags)}),
		Logger:     logger,
	})
	defer agg.Close()

	for i := 0; i < *pages; i++ {
		res, err := agg.MergeNextPage(ctx)
		if err != nil {
			logger.Fatalf("merge page %d: %v", i+1, err)
		}
		logger.Printf("page %d: +%d activities (feed %d)", i+1, res.Added, len(res.Feed))
		if res.Exhausted {
			logger.Println("all sources exhausted")
			break
		}
	}

	if err := agg.RefreshPerformance(ctx); err != nil && !errors.Is(err, aggregator.ErrNoStatsSource) {
		logger.Printf("trader stats unavailable: %v", err)
	}

	out := os.Stdout
	printStatuses(out, agg.Statuses())
	printFeed(out, agg.Filtered(aggregator.Filter{Kinds: parseKinds(*kinds), Query: *query}), *head)

	sum, err := agg.Summary(w)
	if err != nil {
		logger.Fatalf("summary: %v", err)
	}
	printSummary(out, sum)

	for _, kind := range domain.SeriesKinds {
		points, err := agg.Series(kind)
		if err != nil {
			// Only this series is affected.
			fmt.Fprintf(out, "\n%s series: %v\n", kind, err)
			continue
		}
		printSeries(out, kind, points)
	}

	if *outputDir != "" {
		report, err := reporting.NewGenerator(agg).Generate(w)
		if err != nil {
			logger.Fatalf("report: %v", err)
		}
		if err := reporting.WriteFiles(*outputDir, report, agg.Feed()); err != nil {
			logger.Fatalf("write report: %v", err)
		}
		logger.Printf("report written to %s/", *outputDir)
	}
}

// newSources builds JSON-RPC and HTTP fetchers; the CLI does not keep a
// WebSocket open.
func newSources(cfg *config.Config) ingestion.Sources {
	sources := ingestion.Sources{
		Ledger: xrpl.NewHTTPClient(cfg.Ledger.RPCEndpoint,
			xrpl.WithTimeout(cfg.HTTP.Timeout),
			xrpl.WithMaxRetries(cfg.HTTP.MaxRetries),
			xrpl.WithRetryDelay(cfg.HTTP.RetryDelay),
		),
		LedgerPageSize: cfg.Ledger.PageSize,
		TokenPageSize:  cfg.TokenHistory.PageSize,
		NFTPageSize:    cfg.NFTTrades.PageSize,
		TokenType:      cfg.TokenHistory.Type,
		TokenPairType:  cfg.TokenHistory.PairType,
	}
	if cfg.TokenHistory.BaseURL != "" {
		client := tokenhistory.NewClient(cfg.TokenHistory.BaseURL,
			tokenhistory.WithTimeout(cfg.HTTP.Timeout),
			tokenhistory.WithAPIKey(cfg.TokenHistory.APIKey),
		)
		sources.Tokens = client
		sources.Stats = client
	}
	if cfg.NFTTrades.BaseURL != "" {
		sources.NFTs = nfttrades.NewClient(cfg.NFTTrades.BaseURL, nfttrades.WithTimeout(cfg.HTTP.Timeout))
	}
	return sources
}

func parseKinds(s string) []domain.TransactionKind {
	var kinds []domain.TransactionKind
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			kinds = append(kinds, domain.ParseTransactionKind(part))
		}
	}
	return kinds
}

func printStatuses(out *os.File, states []domain.CursorState) {
	fmt.Fprintln(out, "Sources:")
	for _, s := range states {
		line := fmt.Sprintf("  %-14s %-13s fetched=%d exhausted=%t", s.Source, s.Status, s.Fetched, s.Exhausted)
		if s.LastError != "" {
			line += " error=" + s.LastError
		}
		fmt.Fprintln(out, line)
	}
}

func printFeed(out *os.File, feed []*domain.NormalizedActivity, head int) {
	fmt.Fprintf(out, "\nFeed (%d):\n", len(feed))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tDIR\tSIDE\tAMOUNT\tCOUNTERPARTY\tTAG\tHASH")
	for i, a := range feed {
		if head > 0 && i >= head {
			break
		}
		amount := "-"
		if a.Primary != nil {
			amount = a.Primary.Value.String() + " " + a.Primary.Currency
			if a.Secondary != nil {
				amount += " / " + a.Secondary.Value.String() + " " + a.Secondary.Currency
			}
			if a.IsDust {
				amount += " (dust)"
			}
		}
		cp := "-"
		if a.Counterparty != nil {
			cp = *a.Counterparty
		}
		tag := "-"
		if a.SourceTag != nil {
			tag = a.SourceTag.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Timestamp.Format(time.RFC3339), a.Kind, a.Direction, a.Side, amount, cp, tag, a.ID)
	}
	tw.Flush()
}

func printSummary(out *os.File, s *domain.MetricsSummary) {
	fmt.Fprintf(out, "\nSummary (%s):\n", s.Window)
	fmt.Fprintf(out, "  Total PnL:    %s XRP (token %s, nft %s)\n", s.TotalPnL.StringFixed(6), s.TokenPnL.StringFixed(6), s.NFTPnL.StringFixed(6))
	fmt.Fprintf(out, "  Unrealized:   %s XRP\n", s.UnrealizedPnL.StringFixed(6))
	fmt.Fprintf(out, "  Volume:       %s XRP (dex %s, amm %s, nft %s)\n",
		s.TotalVolume.StringFixed(6), s.DEXVolume.StringFixed(6), s.AMMVolume.StringFixed(6), s.NFTVolume.StringFixed(6))
	fmt.Fprintf(out, "  Trades:       %d (%d winning, %.2f%%)\n", s.TotalTrades, s.WinningTrades, s.WinRate)
	fmt.Fprintf(out, "  ROI:          %.2f%%\n", s.ROI)
	if wm := s.WindowMetrics; wm != nil {
		fmt.Fprintf(out, "  Window:       %s volume=%.2f trades=%d profit=%.2f roi=%.2f%%\n",
			wm.Origin, wm.Volume, wm.Trades, wm.Profit, wm.ROI)
	}
}

func printSeries(out *os.File, kind domain.SeriesKind, points []domain.DailySeriesPoint) {
	fmt.Fprintf(out, "\n%s series (%d days):\n", kind, len(points))
	for _, p := range points {
		fmt.Fprintf(out, "  %s  %12.4f  %12.4f\n", p.Date.Format("2006-01-02"), p.DailyValue, p.CumulativeValue)
	}
}
