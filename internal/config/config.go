// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Hard ceilings on owner-tunable parameters. Admin calls above these are
// rejected regardless of configuration.
const (
	MaxSlippageToleranceBps = 1000 // 10%
	MaxFeePercentageBps     = 3000 // 30%
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Lender     LenderConfig     `mapstructure:"lender"`
	Venues     []VenueConfig    `mapstructure:"venues"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Uniswap    UniswapConfig    `mapstructure:"uniswap"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// ExecutorConfig holds the executor's initial contract-level parameters.
type ExecutorConfig struct {
	Owner                  string   `mapstructure:"owner"`
	SlippageToleranceBps   int64    `mapstructure:"slippage_tolerance_bps"`
	MaxConsecutiveFailures uint32   `mapstructure:"max_consecutive_failures"`
	FeePercentageBps       int64    `mapstructure:"fee_percentage_bps"`
	FeeRecipient           string   `mapstructure:"fee_recipient"`
	FeesEnabled            bool     `mapstructure:"fees_enabled"`
	WhitelistedTokens      []string `mapstructure:"whitelisted_tokens"`
}

// LenderConfig holds the flash-loan facility parameters.
type LenderConfig struct {
	Name       string             `mapstructure:"name"`
	PremiumBps int64              `mapstructure:"premium_bps"`
	Liquidity  map[string]float64 `mapstructure:"liquidity"` // token symbol -> pool depth
}

// VenueConfig describes one liquidity venue.
type VenueConfig struct {
	ID       string       `mapstructure:"id"`
	Kind     string       `mapstructure:"kind"` // "concentrated" or "constant_product"
	FeeBps   int64        `mapstructure:"fee_bps"`
	FeeTiers []int64      `mapstructure:"fee_tiers"`
	Pools    []PoolConfig `mapstructure:"pools"`
}

// PoolConfig seeds one pool on a venue.
type PoolConfig struct {
	TokenA   string  `mapstructure:"token_a"`
	TokenB   string  `mapstructure:"token_b"`
	ReserveA float64 `mapstructure:"reserve_a"`
	ReserveB float64 `mapstructure:"reserve_b"`
	FeeTier  int64   `mapstructure:"fee_tier"`
}

// EvaluationConfig holds profitability-band parameters for the calculator.
type EvaluationConfig struct {
	MinProfitUSD     float64 `mapstructure:"min_profit_usd"`
	MinProfitPercent float64 `mapstructure:"min_profit_percent"`
	MaxProfitPercent float64 `mapstructure:"max_profit_percent"`
	LoanPremiumBps   float64 `mapstructure:"loan_premium_bps"`
	NotionalUSD      float64 `mapstructure:"notional_usd"`
}

// MinProfitUSDDecimal returns the absolute profit threshold as a decimal.
func (c *EvaluationConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// MinProfitPercentDecimal returns the lower band bound as a decimal.
func (c *EvaluationConfig) MinProfitPercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitPercent)
}

// MaxProfitPercentDecimal returns the upper band bound as a decimal.
func (c *EvaluationConfig) MaxProfitPercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxProfitPercent)
}

// LoanPremiumBpsDecimal returns the flash-loan premium rate as a decimal.
func (c *EvaluationConfig) LoanPremiumBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.LoanPremiumBps)
}

// FeedConfig holds the opportunity feed source settings.
type FeedConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Source              string        `mapstructure:"source"` // "websocket" or "rest"
	WebSocketURL        string        `mapstructure:"websocket_url"`
	RESTURL             string        `mapstructure:"rest_url"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	SubmitPerMinute     int           `mapstructure:"submit_per_minute"`
	ReconnectBackoff    time.Duration `mapstructure:"reconnect_backoff"`
	MaxReconnectBackoff time.Duration `mapstructure:"max_reconnect_backoff"`
}

// UniswapConfig holds the optional on-chain quote source settings.
type UniswapConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	HTTPURL        string `mapstructure:"http_url"`
	QuoterAddress  string `mapstructure:"quoter_address"`
	DefaultFeeTier int    `mapstructure:"default_fee_tier"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *UniswapConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FLASHARB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FLASHARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FLASHARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FLASHARB_LOG_LEVEL", "LOG_LEVEL")

	// Executor
	v.BindEnv("executor.owner", "FLASHARB_OWNER")
	v.BindEnv("executor.slippage_tolerance_bps", "FLASHARB_SLIPPAGE_BPS")
	v.BindEnv("executor.max_consecutive_failures", "FLASHARB_MAX_FAILURES")
	v.BindEnv("executor.fee_percentage_bps", "FLASHARB_FEE_BPS")
	v.BindEnv("executor.fee_recipient", "FLASHARB_FEE_RECIPIENT")

	// Lender
	v.BindEnv("lender.premium_bps", "FLASHARB_LENDER_PREMIUM_BPS")

	// Evaluation
	v.BindEnv("evaluation.min_profit_usd", "FLASHARB_MIN_PROFIT_USD")
	v.BindEnv("evaluation.min_profit_percent", "FLASHARB_MIN_PROFIT_PCT")
	v.BindEnv("evaluation.max_profit_percent", "FLASHARB_MAX_PROFIT_PCT")

	// Feed
	v.BindEnv("feed.websocket_url", "FLASHARB_FEED_WS_URL", "FEED_WS_URL")
	v.BindEnv("feed.rest_url", "FLASHARB_FEED_REST_URL")

	// Uniswap
	v.BindEnv("uniswap.http_url", "FLASHARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("uniswap.quoter_address", "FLASHARB_UNISWAP_QUOTER")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FLASHARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FLASHARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FLASHARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flash-arb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Executor defaults
	v.SetDefault("executor.owner", "owner")
	v.SetDefault("executor.slippage_tolerance_bps", 50) // 0.5%
	v.SetDefault("executor.max_consecutive_failures", 3)
	v.SetDefault("executor.fee_percentage_bps", 0)
	v.SetDefault("executor.fees_enabled", false)
	v.SetDefault("executor.whitelisted_tokens", []string{"WETH", "USDC"})

	// Lender defaults
	v.SetDefault("lender.name", "memory-lender")
	v.SetDefault("lender.premium_bps", 9) // 0.09%, Aave V3 style

	// Evaluation defaults
	v.SetDefault("evaluation.min_profit_usd", 10)
	v.SetDefault("evaluation.min_profit_percent", 1)
	v.SetDefault("evaluation.max_profit_percent", 8)
	v.SetDefault("evaluation.loan_premium_bps", 9)
	v.SetDefault("evaluation.notional_usd", 10000)

	// Feed defaults
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.source", "websocket")
	v.SetDefault("feed.poll_interval", "5s")
	v.SetDefault("feed.submit_per_minute", 30)
	v.SetDefault("feed.reconnect_backoff", "1s")
	v.SetDefault("feed.max_reconnect_backoff", "30s")

	// Uniswap V3 Mainnet defaults (quote source only)
	v.SetDefault("uniswap.enabled", false)
	v.SetDefault("uniswap.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("uniswap.default_fee_tier", 3000) // 0.3%

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flash-arb")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Executor.Owner == "" {
		return fmt.Errorf("executor.owner is required")
	}
	if c.Executor.SlippageToleranceBps < 0 || c.Executor.SlippageToleranceBps > MaxSlippageToleranceBps {
		return fmt.Errorf("executor.slippage_tolerance_bps must be in [0, %d]", MaxSlippageToleranceBps)
	}
	if c.Executor.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("executor.max_consecutive_failures must be >= 1")
	}
	if c.Executor.FeePercentageBps < 0 || c.Executor.FeePercentageBps > MaxFeePercentageBps {
		return fmt.Errorf("executor.fee_percentage_bps must be in [0, %d]", MaxFeePercentageBps)
	}
	if c.Executor.FeesEnabled && c.Executor.FeeRecipient == "" {
		return fmt.Errorf("executor.fee_recipient is required when fees are enabled")
	}
	if c.Lender.PremiumBps < 0 {
		return fmt.Errorf("lender.premium_bps cannot be negative")
	}
	for _, venue := range c.Venues {
		if venue.ID == "" {
			return fmt.Errorf("venue id cannot be empty")
		}
		if venue.Kind != "concentrated" && venue.Kind != "constant_product" {
			return fmt.Errorf("venue %s: unknown kind %q", venue.ID, venue.Kind)
		}
	}
	if c.Evaluation.MaxProfitPercent <= c.Evaluation.MinProfitPercent {
		return fmt.Errorf("evaluation.max_profit_percent must exceed min_profit_percent")
	}
	if c.Feed.Enabled {
		switch c.Feed.Source {
		case "websocket":
			if c.Feed.WebSocketURL == "" {
				return fmt.Errorf("feed.websocket_url is required when feed source is websocket")
			}
		case "rest":
			if c.Feed.RESTURL == "" {
				return fmt.Errorf("feed.rest_url is required when feed source is rest")
			}
		default:
			return fmt.Errorf("feed.source must be websocket or rest, got %q", c.Feed.Source)
		}
	}
	if c.Uniswap.Enabled {
		if c.Uniswap.HTTPURL == "" {
			return fmt.Errorf("uniswap.http_url is required when uniswap quotes are enabled")
		}
		if !common.IsHexAddress(c.Uniswap.QuoterAddress) {
			return fmt.Errorf("invalid uniswap.quoter_address: %s", c.Uniswap.QuoterAddress)
		}
	}
	return nil
}
