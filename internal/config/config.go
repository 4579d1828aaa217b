package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// RPC settings
	RPCUrl  string
	Network string

	// Redis settings (wallet persistence)
	RedisAddr        string
	WalletPassphrase string

	// ClickHouse settings (trade/candle history)
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP API settings
	APIAddr string
	APIKey  string
	DevMode bool

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Pool / quote defaults
	PoolFeeBps  int64
	SlippagePct float64

	// Bot fleet defaults
	BotInterval time.Duration

	// Funding defaults
	FundingWalletCount int
	FundingWindow      time.Duration
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl:  getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
		Network: getEnv("SOLANA_NETWORK", "devnet"),

		// Redis
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		WalletPassphrase: getEnv("WALLET_PASSPHRASE", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "sniperlab"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 1*time.Second),

		// Pool / quote
		PoolFeeBps:  int64(getIntEnv("POOL_FEE_BPS", 25)),
		SlippagePct: getFloatEnv("SLIPPAGE_PCT", 1.0),

		// Bots
		BotInterval: getDurationEnv("BOT_INTERVAL", 5*time.Second),

		// Funding
		FundingWalletCount: getIntEnv("FUNDING_WALLET_COUNT", 6),
		FundingWindow:      getDurationEnv("FUNDING_WINDOW", 3*time.Minute),
	}
}

// Validate rejects configurations that would break component construction.
func (c *Config) Validate() error {
	if c.RPCUrl == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.PoolFeeBps < 0 || c.PoolFeeBps >= 10000 {
		return fmt.Errorf("POOL_FEE_BPS must be in [0, 10000)")
	}
	if c.SlippagePct < 0 || c.SlippagePct > 100 {
		return fmt.Errorf("SLIPPAGE_PCT must be in [0, 100]")
	}
	if c.BotInterval <= 0 {
		return fmt.Errorf("BOT_INTERVAL must be > 0")
	}
	if c.FundingWalletCount < 1 {
		return fmt.Errorf("FUNDING_WALLET_COUNT must be >= 1")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
