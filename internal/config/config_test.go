package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesis = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
ledger:
  rpc_endpoint: https://s1.ripple.com:51234
  page_size: 50
token_history:
  base_url: https://history.example
  type: swap
storage:
  use_memory: true
cache:
  summary_ttl: 90s
schedule:
  refresh_cron: "0 0 * * * *"
  accounts: [`+genesis+`]
source_tags:
  270601: FirstLedger
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "https://s1.ripple.com:51234", cfg.Ledger.RPCEndpoint)
	assert.Equal(t, 50, cfg.Ledger.PageSize)
	assert.Equal(t, "swap", cfg.TokenHistory.Type)
	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, 90*time.Second, cfg.Cache.SummaryTTL)
	assert.Equal(t, "0 0 * * * *", cfg.Schedule.RefreshCron)
	assert.Equal(t, []string{genesis}, cfg.Schedule.Accounts)
	assert.Equal(t, "FirstLedger", cfg.SourceTags[270601])

	// Defaults fill what the file leaves out.
	assert.Equal(t, 100, cfg.TokenHistory.PageSize)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Ledger.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SummaryTTL)
	assert.Equal(t, "0 */15 * * * *", cfg.Schedule.RefreshCron)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "ledger:\n  rpc_endpoint: http://from-yaml\n")
	t.Setenv("XRPL_RPC_ENDPOINT", "http://from-env")
	t.Setenv("WATCH_ACCOUNTS", genesis+", ,"+genesis)
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("SUMMARY_CACHE_TTL", "1m")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.Ledger.RPCEndpoint)
	assert.Equal(t, []string{genesis, genesis}, cfg.Schedule.Accounts)
	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, time.Minute, cfg.Cache.SummaryTTL)
}

func TestLoad_DotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "NFT_TRADES_URL=http://nft.example\nREDIS_DB=3\n")
	t.Cleanup(func() {
		os.Unsetenv("NFT_TRADES_URL")
		os.Unsetenv("REDIS_DB")
	})

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://nft.example", cfg.NFTTrades.BaseURL)
	assert.Equal(t, 3, cfg.Storage.RedisDB)
}

func TestLoad_BadValues(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "ledger: [unclosed"), "")
	assert.Error(t, err)

	t.Setenv("USE_MEMORY", "sometimes")
	_, err = Load("", "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid memory", func(c *Config) {}, false},
		{"no ledger endpoint", func(c *Config) { c.Ledger.RPCEndpoint = "" }, true},
		{"ws only", func(c *Config) { c.Ledger.RPCEndpoint = ""; c.Ledger.WSEndpoint = "wss://x" }, false},
		{"databases required", func(c *Config) { c.Storage.UseMemory = false }, true},
		{"databases set", func(c *Config) {
			c.Storage.UseMemory = false
			c.Storage.PostgresDSN = "postgres://x"
			c.Storage.ClickhouseDSN = "clickhouse://x/db"
		}, false},
		{"bad watch account", func(c *Config) { c.Schedule.Accounts = []string{"rNope"} }, true},
		{"negative page size", func(c *Config) { c.NFTTrades.PageSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Ledger.RPCEndpoint = "http://localhost:5005"
			cfg.Storage.UseMemory = true
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
