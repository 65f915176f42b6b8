// Package config loads the service configuration from YAML, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"xrpl-activity-lab/internal/xrpl"
)

// Config holds all application configuration.
type Config struct {
	Ledger struct {
		RPCEndpoint string `yaml:"rpc_endpoint"`
		WSEndpoint  string `yaml:"ws_endpoint"` // preferred over RPC when set
		PageSize    int    `yaml:"page_size"`
	} `yaml:"ledger"`
	TokenHistory struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		PageSize int    `yaml:"page_size"`
		Type     string `yaml:"type"`
		PairType string `yaml:"pair_type"`
	} `yaml:"token_history"`
	NFTTrades struct {
		BaseURL  string `yaml:"base_url"`
		PageSize int    `yaml:"page_size"`
	} `yaml:"nft_trades"`
	HTTP struct {
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"http"`
	Storage struct {
		UseMemory     bool   `yaml:"use_memory"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"storage"`
	Cache struct {
		SummaryTTL    time.Duration `yaml:"summary_ttl"`
		MaxSessions   int           `yaml:"max_sessions"`
		CurrencyCodes int           `yaml:"currency_codes"`
	} `yaml:"cache"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Schedule struct {
		RefreshCron string   `yaml:"refresh_cron"`
		Accounts    []string `yaml:"accounts"`
		PagesPerRun int      `yaml:"pages_per_run"`
	} `yaml:"schedule"`
	SourceTags map[uint32]string `yaml:"source_tags"`
}

// Load reads config from a YAML file, then the .env file, then applies
// environment variable overrides and defaults. Missing files are ignored.
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if envFile != "" {
		// Load never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Ledger.RPCEndpoint, "XRPL_RPC_ENDPOINT")
	setString(&cfg.Ledger.WSEndpoint, "XRPL_WS_ENDPOINT")
	setString(&cfg.TokenHistory.BaseURL, "TOKEN_HISTORY_URL")
	setString(&cfg.TokenHistory.APIKey, "TOKEN_HISTORY_API_KEY")
	setString(&cfg.NFTTrades.BaseURL, "NFT_TRADES_URL")
	setString(&cfg.Storage.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")
	setString(&cfg.Storage.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Storage.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Schedule.RefreshCron, "REFRESH_CRON")

	if v := os.Getenv("WATCH_ACCOUNTS"); v != "" {
		cfg.Schedule.Accounts = splitList(v)
	}
	if v := os.Getenv("USE_MEMORY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_MEMORY: %w", err)
		}
		cfg.Storage.UseMemory = b
	}
	if err := setInt(&cfg.Storage.RedisDB, "REDIS_DB"); err != nil {
		return err
	}
	if err := setInt(&cfg.Ledger.PageSize, "LEDGER_PAGE_SIZE"); err != nil {
		return err
	}
	if v := os.Getenv("SUMMARY_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SUMMARY_CACHE_TTL: %w", err)
		}
		cfg.Cache.SummaryTTL = d
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Ledger.PageSize == 0 {
		cfg.Ledger.PageSize = 200
	}
	if cfg.TokenHistory.PageSize == 0 {
		cfg.TokenHistory.PageSize = 100
	}
	if cfg.NFTTrades.PageSize == 0 {
		cfg.NFTTrades.PageSize = 50
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}
	if cfg.HTTP.MaxRetries == 0 {
		cfg.HTTP.MaxRetries = 3
	}
	if cfg.HTTP.RetryDelay == 0 {
		cfg.HTTP.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Cache.SummaryTTL == 0 {
		cfg.Cache.SummaryTTL = 5 * time.Minute
	}
	if cfg.Cache.MaxSessions == 0 {
		cfg.Cache.MaxSessions = 256
	}
	if cfg.Cache.CurrencyCodes == 0 {
		cfg.Cache.CurrencyCodes = 4096
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */15 * * * *"
	}
	if cfg.Schedule.PagesPerRun == 0 {
		cfg.Schedule.PagesPerRun = 1
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Ledger.RPCEndpoint == "" && c.Ledger.WSEndpoint == "" {
		return fmt.Errorf("ledger.rpc_endpoint or ledger.ws_endpoint is required")
	}
	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "") {
		return fmt.Errorf("storage.postgres_dsn and storage.clickhouse_dsn are required (or storage.use_memory)")
	}
	if c.Ledger.PageSize < 0 || c.TokenHistory.PageSize < 0 || c.NFTTrades.PageSize < 0 {
		return fmt.Errorf("page sizes must not be negative")
	}
	if c.Schedule.PagesPerRun < 0 {
		return fmt.Errorf("schedule.pages_per_run must not be negative")
	}
	for _, acct := range c.Schedule.Accounts {
		if !xrpl.ValidAddress(acct) {
			return fmt.Errorf("schedule.accounts: %q is not a classic address", acct)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
