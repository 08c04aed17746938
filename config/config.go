package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Market   MarketConfig   `json:"market" yaml:"market"`
	Paper    PaperConfig    `json:"paper" yaml:"paper"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// Duration is a time.Duration that reads and writes config files as a
// string such as "30s" or "24h". Bare integers are still accepted and
// treated as nanoseconds.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (interface{}, error) { return d.String(), nil }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw interface{}) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(v)
	default:
		return fmt.Errorf("duration must be a string like \"30s\", got %T", raw)
	}
	return nil
}

// ServerConfig contains HTTP listener parameters.
type ServerConfig struct {
	Addr            string   `json:"addr" yaml:"addr"`
	ReadTimeout     Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig contains SQLite parameters.
type DatabaseConfig struct {
	Path         string `json:"path" yaml:"path"`
	InMemory     bool   `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
	MaxOpenConns int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns" yaml:"max_idle_conns"`
}

// AuthConfig contains registration and session parameters.
type AuthConfig struct {
	BcryptCost int      `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	SessionTTL Duration `json:"session_ttl" yaml:"session_ttl"`
	AdminEmail string   `json:"admin_email,omitempty" yaml:"admin_email,omitempty"`
}

// MarketConfig drives the synthetic quote service.
type MarketConfig struct {
	Seed        int64                 `json:"seed" yaml:"seed"`
	Drift       float64               `json:"drift" yaml:"drift"`
	Volatility  float64               `json:"volatility" yaml:"volatility"`
	RiskFree    float64               `json:"risk_free_rate" yaml:"risk_free_rate"`
	Underlyings map[string]Underlying `json:"underlyings" yaml:"underlyings"`
}

// Underlying describes one tradeable root symbol.
type Underlying struct {
	BasePrice  float64 `json:"base_price" yaml:"base_price"`
	StrikeStep float64 `json:"strike_step" yaml:"strike_step"`
}

// PaperConfig contains paper-trading execution parameters.
type PaperConfig struct {
	SlippageRate    float64 `json:"slippage_rate" yaml:"slippage_rate"`
	StartingCash    float64 `json:"starting_cash" yaml:"starting_cash"`
	MaxOrderQty     float64 `json:"max_order_qty" yaml:"max_order_qty"`
	ContractSize    float64 `json:"contract_size" yaml:"contract_size"`
	MaxAccountsUser int     `json:"max_accounts_per_user" yaml:"max_accounts_per_user"`
}

// LoggingConfig mirrors zap's knobs we expose.
type LoggingConfig struct {
	Level       string   `json:"level" yaml:"level"`
	Encoding    string   `json:"encoding" yaml:"encoding"`
	Development bool     `json:"development,omitempty" yaml:"development,omitempty"`
	OutputPaths []string `json:"output_paths,omitempty" yaml:"output_paths,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database.path required unless in_memory is set")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Market.Volatility <= 0 || c.Market.Volatility > 3 {
		return fmt.Errorf("market.volatility must be in (0, 3]")
	}
	if len(c.Market.Underlyings) == 0 {
		return fmt.Errorf("market.underlyings must list at least one symbol")
	}
	for sym, u := range c.Market.Underlyings {
		if u.BasePrice <= 0 {
			return fmt.Errorf("market.underlyings[%s].base_price must be positive", sym)
		}
		if u.StrikeStep <= 0 {
			return fmt.Errorf("market.underlyings[%s].strike_step must be positive", sym)
		}
	}
	if c.Paper.SlippageRate < 0 || c.Paper.SlippageRate > 0.05 {
		return fmt.Errorf("paper.slippage_rate must be in [0, 0.05]")
	}
	if c.Paper.StartingCash <= 0 {
		return fmt.Errorf("paper.starting_cash must be positive")
	}
	if c.Paper.MaxOrderQty <= 0 {
		return fmt.Errorf("paper.max_order_qty must be positive")
	}
	if c.Paper.ContractSize <= 0 {
		return fmt.Errorf("paper.contract_size must be positive")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Database: DatabaseConfig{
			Path:         "./buddy.db",
			MaxOpenConns: 8,
			MaxIdleConns: 4,
		},
		Auth: AuthConfig{
			BcryptCost: 10,
			SessionTTL: Duration(24 * time.Hour),
		},
		Market: MarketConfig{
			Seed:       42,
			Drift:      0.0001,
			Volatility: 0.22,
			RiskFree:   0.03,
			Underlyings: map[string]Underlying{
				"SPY":  {BasePrice: 470, StrikeStep: 5},
				"QQQ":  {BasePrice: 400, StrikeStep: 5},
				"AAPL": {BasePrice: 190, StrikeStep: 2.5},
			},
		},
		Paper: PaperConfig{
			SlippageRate:    0.001,
			StartingCash:    100_000,
			MaxOrderQty:     500,
			ContractSize:    100,
			MaxAccountsUser: 5,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}
