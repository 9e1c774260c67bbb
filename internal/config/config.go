// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the immutable runtime configuration, loaded once at startup.
type Config struct {
	EventsRPC      string `mapstructure:"events_rpc"`
	EventsWSS      string `mapstructure:"events_wss"`
	TransactionRPC string `mapstructure:"transaction_rpc"`
	TransactionWSS string `mapstructure:"transaction_wss"`

	WalletPrivateKey string `mapstructure:"wallet_private_key"`

	BuyAmount    float64 `mapstructure:"buy_amount"`    // SOL
	BuySlippage  uint64  `mapstructure:"buy_slippage"`  // basis points
	SellSlippage uint64  `mapstructure:"sell_slippage"` // basis points

	ComputeUnitLimit    uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice    uint64 `mapstructure:"compute_unit_price"` // micro-lamports
	PriorityFeeEstimate bool   `mapstructure:"priority_fee_estimate"`
	FeeOracleURL        string `mapstructure:"fee_oracle_url"`

	CheckInterval        int     `mapstructure:"check_interval"` // ms
	TakeProfitPercentage float64 `mapstructure:"take_profit_percentage"`
	StopLossPercentage   float64 `mapstructure:"stop_loss_percentage"`

	EventListener          string  `mapstructure:"pump_fun_event_listener"`
	BondingCurveMinPercent float64 `mapstructure:"bonding_curve_min_percent"`
	BondingCurveMaxPercent float64 `mapstructure:"bonding_curve_max_percent"`

	SubmissionChannel string  `mapstructure:"submission_channel"`
	BloxrouteURL      string  `mapstructure:"bloxroute_url"`
	BloxrouteAuth     string  `mapstructure:"bloxroute_auth"`
	BloxrouteTip      float64 `mapstructure:"bloxroute_tip"` // SOL
	BundleEngineURL   string  `mapstructure:"bundle_engine_url"`
	BundleTip         float64 `mapstructure:"bundle_tip"` // SOL
	BundleTipAccount  string  `mapstructure:"bundle_tip_account"`

	ReconnectDelay    int    `mapstructure:"reconnect_delay"` // ms
	ReconnectPolicy   string `mapstructure:"reconnect_policy"`
	MaxReconnectDelay int    `mapstructure:"max_reconnect_delay"` // ms
	HeartbeatInterval int    `mapstructure:"heartbeat_interval"`  // ms

	LogFile     string `mapstructure:"log_file"`
	Debug       bool   `mapstructure:"debug"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	PostgresURL string `mapstructure:"postgres_url"`
	ExportDir   string `mapstructure:"export_dir"`

	LicenseKey    string `mapstructure:"license_key"`
	KeygenAccount string `mapstructure:"keygen_account"`
	KeygenProduct string `mapstructure:"keygen_product"`
	KeygenToken   string `mapstructure:"keygen_token"`
}

const (
	ListenerCreateEvent = "createEvent"
	ListenerTradeEvent  = "tradeEvent"

	ChannelDirect = "direct"
	ChannelRelay  = "relay"
	ChannelBundle = "bundle"

	PolicyFixed       = "fixed"
	PolicyExponential = "exponential"

	DefaultCheckInterval     = 1000
	DefaultReconnectDelay    = 30000
	DefaultMaxReconnectDelay = 300000
	DefaultHeartbeatInterval = 1000
	DefaultBloxrouteURL      = "https://ny.solana.dex.blxrbdn.com/api/v2/submit"

	lamportsPerSOL = 1_000_000_000
)

var defaults = map[string]interface{}{
	"events_rpc":                "",
	"events_wss":                "",
	"transaction_rpc":           "",
	"transaction_wss":           "",
	"wallet_private_key":        "",
	"buy_amount":                0.0,
	"buy_slippage":              0,
	"sell_slippage":             0,
	"compute_unit_limit":        0,
	"compute_unit_price":        0,
	"priority_fee_estimate":     false,
	"fee_oracle_url":            "",
	"check_interval":            DefaultCheckInterval,
	"take_profit_percentage":    0.0,
	"stop_loss_percentage":      0.0,
	"pump_fun_event_listener":   ListenerCreateEvent,
	"bonding_curve_min_percent": 0.0,
	"bonding_curve_max_percent": 100.0,
	"submission_channel":        ChannelRelay,
	"bloxroute_url":             DefaultBloxrouteURL,
	"bloxroute_auth":            "",
	"bloxroute_tip":             0.0,
	"bundle_engine_url":         "",
	"bundle_tip":                0.0,
	"bundle_tip_account":        "",
	"reconnect_delay":           DefaultReconnectDelay,
	"reconnect_policy":          PolicyFixed,
	"max_reconnect_delay":       DefaultMaxReconnectDelay,
	"heartbeat_interval":        DefaultHeartbeatInterval,
	"log_file":                  "sniper.log",
	"debug":                     false,
	"metrics_addr":              "",
	"postgres_url":              "",
	"export_dir":                "",
	"license_key":               "",
	"keygen_account":            "",
	"keygen_product":            "",
	"keygen_token":              "",
}

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Missing files are skipped; values already present in the environment win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig reads the optional config file at path, overlays the
// environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.EventsRPC == "" {
		return errors.New("EVENTS_RPC is required")
	}
	if cfg.EventsWSS == "" {
		return errors.New("EVENTS_WSS is required")
	}
	if cfg.TransactionRPC == "" {
		return errors.New("TRANSACTION_RPC is required")
	}
	if cfg.TransactionWSS == "" {
		return errors.New("TRANSACTION_WSS is required")
	}
	for _, u := range []string{cfg.EventsRPC, cfg.TransactionRPC} {
		if err := validateURLWithCache(u, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", u, err)
		}
	}
	for _, u := range []string{cfg.EventsWSS, cfg.TransactionWSS} {
		if err := validateURLWithCache(u, "ws"); err != nil {
			return fmt.Errorf("invalid websocket URL %q: %w", u, err)
		}
	}
	if cfg.WalletPrivateKey == "" {
		return errors.New("WALLET_PRIVATE_KEY is required")
	}
	if cfg.BuyAmount <= 0 {
		return errors.New("BUY_AMOUNT must be positive")
	}

	switch cfg.EventListener {
	case ListenerCreateEvent, ListenerTradeEvent:
	default:
		return fmt.Errorf("invalid PUMP_FUN_EVENT_LISTENER %q", cfg.EventListener)
	}

	switch cfg.SubmissionChannel {
	case ChannelDirect:
	case ChannelRelay:
		if cfg.BloxrouteAuth == "" {
			return errors.New("BLOXROUTE_AUTH is required for the relay channel")
		}
		if err := validateURLWithCache(cfg.BloxrouteURL, "http"); err != nil {
			return fmt.Errorf("invalid BLOXROUTE_URL: %w", err)
		}
	case ChannelBundle:
		if err := validateURLWithCache(cfg.BundleEngineURL, "http"); err != nil {
			return fmt.Errorf("invalid BUNDLE_ENGINE_URL: %w", err)
		}
		if cfg.BundleTip > 0 && cfg.BundleTipAccount == "" {
			return errors.New("BUNDLE_TIP_ACCOUNT is required when BUNDLE_TIP is set")
		}
	default:
		return fmt.Errorf("invalid SUBMISSION_CHANNEL %q", cfg.SubmissionChannel)
	}

	if cfg.PriorityFeeEstimate && cfg.FeeOracleURL == "" {
		return errors.New("FEE_ORACLE_URL is required when PRIORITY_FEE_ESTIMATE is enabled")
	}

	switch cfg.ReconnectPolicy {
	case PolicyFixed, PolicyExponential:
	default:
		return fmt.Errorf("invalid RECONNECT_POLICY %q", cfg.ReconnectPolicy)
	}

	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.CheckInterval <= 0 {
		return errors.New("invalid CHECK_INTERVAL")
	}
	if cfg.TakeProfitPercentage < 0 {
		return errors.New("invalid TAKE_PROFIT_PERCENTAGE")
	}
	if cfg.StopLossPercentage < 0 || cfg.StopLossPercentage > 100 {
		return errors.New("invalid STOP_LOSS_PERCENTAGE")
	}
	if cfg.BuySlippage > 10000 || cfg.SellSlippage > 10000 {
		return errors.New("slippage must not exceed 10000 bps")
	}
	if cfg.BondingCurveMinPercent < 0 || cfg.BondingCurveMaxPercent > 100 ||
		cfg.BondingCurveMinPercent > cfg.BondingCurveMaxPercent {
		return errors.New("invalid bonding curve percent range")
	}
	if cfg.ReconnectDelay <= 0 || cfg.HeartbeatInterval <= 0 {
		return errors.New("invalid reconnect or heartbeat interval")
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		return errors.New("MAX_RECONNECT_DELAY must not be below RECONNECT_DELAY")
	}
	if cfg.BloxrouteTip < 0 || cfg.BundleTip < 0 {
		return errors.New("tips must not be negative")
	}
	return nil
}

var urlCache sync.Map

// validateURLWithCache caches accepted URLs per protocol.
func validateURLWithCache(rawURL string, protocol string) error {
	key := protocol + "|" + rawURL
	if _, ok := urlCache.Load(key); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(key, parsed)
	return nil
}

// CheckIntervalDuration returns the monitor polling interval.
func (c *Config) CheckIntervalDuration() time.Duration {
	return time.Duration(c.CheckInterval) * time.Millisecond
}

func (c *Config) ReconnectDelayDuration() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Millisecond
}

func (c *Config) MaxReconnectDelayDuration() time.Duration {
	return time.Duration(c.MaxReconnectDelay) * time.Millisecond
}

func (c *Config) HeartbeatIntervalDuration() time.Duration {
	return time.Duration(c.HeartbeatInterval) * time.Millisecond
}

// BuyAmountLamports converts BUY_AMOUNT from SOL to lamports.
func (c *Config) BuyAmountLamports() uint64 {
	return solToLamports(c.BuyAmount)
}

func (c *Config) BloxrouteTipLamports() uint64 {
	return solToLamports(c.BloxrouteTip)
}

func (c *Config) BundleTipLamports() uint64 {
	return solToLamports(c.BundleTip)
}

func solToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(decimal.NewFromFloat(sol).Mul(decimal.NewFromInt(lamportsPerSOL)).Floor().IntPart())
}
