// Package config defines all configuration for the matching engine
// server. Config is loaded from a YAML file (default: configs/config.yaml)
// with overrides from EXCHANGE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"fenrir/internal/common"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Symbols   []SymbolConfig  `mapstructure:"symbols"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Depth     DepthConfig     `mapstructure:"depth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ServerConfig controls the TCP listener order flow arrives on.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Workers int    `mapstructure:"workers"`
}

// SymbolConfig seeds one book at startup.
//
//   - Name: ticker this book trades.
//   - AssetType: one of "equities", "crypto", "fx_spot".
//   - InitialMarketPrice: the price a stop/trailing-stop order is
//     evaluated against until the first real trade prints.
type SymbolConfig struct {
	Name               string  `mapstructure:"name"`
	AssetTypeName      string  `mapstructure:"asset_type"`
	InitialMarketPrice float64 `mapstructure:"initial_market_price"`
}

// FeesConfig holds the taker/maker fee rates. They are loaded and
// validated only; no fee is charged on fills.
type FeesConfig struct {
	TakerRate float64 `mapstructure:"taker_rate"`
	MakerRate float64 `mapstructure:"maker_rate"`
}

// DepthConfig holds the book depth setting. It is loaded and validated
// only; LogBook always reports up to book.DefaultDepthSize levels per side.
type DepthConfig struct {
	Size int `mapstructure:"size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the optional websocket market-data feed.
type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EXCHANGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 9001)
	v.SetDefault("server.workers", 10)
	v.SetDefault("fees.taker_rate", 0.01)
	v.SetDefault("fees.maker_rate", 0.005)
	v.SetDefault("depth.size", 30)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 9002)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if addr := os.Getenv("EXCHANGE_SERVER_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one entry in symbols is required")
	}
	for _, s := range c.Symbols {
		switch s.AssetTypeName {
		case "equities", "crypto", "fx_spot":
		default:
			return fmt.Errorf("symbol %q: asset_type must be one of equities, crypto, fx_spot", s.Name)
		}
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fees.TakerRate < 0 || c.Fees.MakerRate < 0 {
		return fmt.Errorf("fee rates must be >= 0")
	}
	if c.Depth.Size <= 0 {
		return fmt.Errorf("depth.size must be > 0")
	}
	return nil
}

// AssetType converts the config's string asset type to common.AssetType.
func (s SymbolConfig) AssetType() common.AssetType {
	switch s.AssetTypeName {
	case "crypto":
		return common.Crypto
	case "fx_spot":
		return common.FXSpot
	default:
		return common.Equities
	}
}
