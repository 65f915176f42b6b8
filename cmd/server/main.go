// Package main runs the activity API server:
// - HTTP API over per-account sessions (feed, metrics, daily series)
// - Scheduled refresh of the configured watch list
// - Prometheus metrics and health endpoints
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xrpl-activity-lab/internal/api"
	"xrpl-activity-lab/internal/config"
	"xrpl-activity-lab/internal/currency"
	"xrpl-activity-lab/internal/ingestion"
	"xrpl-activity-lab/internal/nfttrades"
	"xrpl-activity-lab/internal/normalization"
	"xrpl-activity-lab/internal/scheduler"
	"xrpl-activity-lab/internal/service"
	"xrpl-activity-lab/internal/storage"
	chstore "xrpl-activity-lab/internal/storage/clickhouse"
	"xrpl-activity-lab/internal/storage/memory"
	"xrpl-activity-lab/internal/storage/migrations"
	pgstore "xrpl-activity-lab/internal/storage/postgres"
	redisstore "xrpl-activity-lab/internal/storage/redis"
	"xrpl-activity-lab/internal/tokenhistory"
	"xrpl-activity-lab/internal/xrpl"
)

// stores holds the storage implementations used by the registry.
type stores struct {
	activities storage.ActivityStore
	series     storage.DailySeriesStore
	cache      storage.SummaryCache
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	envFile := flag.String("env-file", ".env", "Path to .env file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	noSchedule := flag.Bool("no-schedule", false, "Disable the watch-list refresh schedule")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanupStores, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanupStores()

	sources, cleanupSources, err := createSources(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create sources: %v", err)
	}
	defer cleanupSources()

	normalizer := normalization.New(normalization.Options{
		Codec: currency.NewCodec(cfg.Cache.CurrencyCodes),
		Tags:  normalization.NewSourceTags(cfg.SourceTags),
	})

	registry, err := service.NewRegistry(service.Options{
		Sources:     sources,
		Normalizer:  normalizer,
		Activities:  st.activities,
		Series:      st.series,
		Cache:       st.cache,
		CacheTTL:    cfg.Cache.SummaryTTL,
		MaxSessions: cfg.Cache.MaxSessions,
		Logger:      log.New(os.Stdout, "[registry] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		logger.Fatalf("Failed to create registry: %v", err)
	}
	defer registry.Close()

	var sched *scheduler.Scheduler
	if !*noSchedule && len(cfg.Schedule.Accounts) > 0 {
		sched, err = scheduler.New(ctx, registry, scheduler.Options{
			Spec:        cfg.Schedule.RefreshCron,
			Accounts:    cfg.Schedule.Accounts,
			PagesPerRun: cfg.Schedule.PagesPerRun,
			Logger:      log.New(os.Stdout, "[scheduler] ", log.LstdFlags|log.Lshortfile),
		})
		if err != nil {
			logger.Fatalf("Failed to create scheduler: %v", err)
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(registry, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		logger.Printf("Starting HTTP server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- err
			return
		}
		done <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-done:
		if err != nil {
			logger.Printf("HTTP server error: %v", err)
		}
	}

	cancel()
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the configured stores. The summary cache is only
// created when a Redis address is configured.
func createStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	if cfg.Storage.UseMemory {
		return &stores{
			activities: memory.NewActivityStore(),
			series:     memory.NewDailySeriesStore(),
			cache:      memory.NewSummaryCache(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	st := &stores{
		activities: pgstore.NewActivityStore(pool),
		series:     chstore.NewDailySeriesStore(chConn),
	}

	closeRedis := func() {}
	if cfg.Storage.RedisAddr != "" {
		client, err := redisstore.NewClient(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		st.cache = redisstore.NewSummaryCache(client)
		closeRedis = func() { client.Close() }
	}

	cleanup := func() {
		closeRedis()
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

// createSources builds the upstream fetchers. The ledger uses WebSocket when
// an endpoint is configured and JSON-RPC otherwise; the HTTP APIs are
// optional.
func createSources(ctx context.Context, cfg *config.Config) (ingestion.Sources, func(), error) {
	sources := ingestion.Sources{
		LedgerPageSize: cfg.Ledger.PageSize,
		TokenPageSize:  cfg.TokenHistory.PageSize,
		NFTPageSize:    cfg.NFTTrades.PageSize,
		TokenType:      cfg.TokenHistory.Type,
		TokenPairType:  cfg.TokenHistory.PairType,
	}
	cleanup := func() {}

	if cfg.Ledger.WSEndpoint != "" {
		ws, err := xrpl.NewWSClient(ctx, cfg.Ledger.WSEndpoint, nil)
		if err != nil {
			return sources, nil, fmt.Errorf("create websocket client: %w", err)
		}
		sources.Ledger = ws
		cleanup = func() { ws.Close() }
	} else {
		sources.Ledger = xrpl.NewHTTPClient(cfg.Ledger.RPCEndpoint,
			xrpl.WithTimeout(cfg.HTTP.Timeout),
			xrpl.WithMaxRetries(cfg.HTTP.MaxRetries),
			xrpl.WithRetryDelay(cfg.HTTP.RetryDelay),
		)
	}

	if cfg.TokenHistory.BaseURL != "" {
		client := tokenhistory.NewClient(cfg.TokenHistory.BaseURL,
			tokenhistory.WithTimeout(cfg.HTTP.Timeout),
			tokenhistory.WithMaxRetries(cfg.HTTP.MaxRetries),
			tokenhistory.WithRetryDelay(cfg.HTTP.RetryDelay),
			tokenhistory.WithAPIKey(cfg.TokenHistory.APIKey),
		)
		sources.Tokens = client
		sources.Stats = client
	}

	if cfg.NFTTrades.BaseURL != "" {
		sources.NFTs = nfttrades.NewClient(cfg.NFTTrades.BaseURL,
			nfttrades.WithTimeout(cfg.HTTP.Timeout),
			nfttrades.WithMaxRetries(cfg.HTTP.MaxRetries),
			nfttrades.WithRetryDelay(cfg.HTTP.RetryDelay),
		)
	}

	return sources, cleanup, nil
}
