package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"mybucks/internal/domain/entity"
)

// Credential policy. These bounds are part of the derivation contract: the
// salt takes a fixed-size suffix of the password, so the minimum length can
// never drop below that suffix.
const (
	PasswordMinLength = 12
	PasswordMaxLength = 128
	PasscodeMinLength = 6
	PasscodeMaxLength = 16
)

// Config holds the overall configuration for the application.
type Config struct {
	Server   ServerConfig               `yaml:"server"`
	Networks []entity.NetworkDefinition `yaml:"networks"`
	Tron     TronConfig                 `yaml:"tron"`
	Balance  ProviderConfig             `yaml:"balanceProvider"`
	History  ProviderConfig             `yaml:"historyProvider"`
	Price    PriceProviderConfig        `yaml:"priceProvider"`
	Session  SessionConfig              `yaml:"session"`
	Logging  LoggingConfig              `yaml:"logging"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// TronConfig holds the Tron full-node endpoint and the TRC-20 assets tracked
// for balances.
type TronConfig struct {
	NodeURL          string              `yaml:"nodeURL"`
	BlockExplorerURL string              `yaml:"blockExplorerUrl"`
	RequestTimeoutMs int64               `yaml:"requestTimeoutMs"`
	Tokens           []entity.TronToken  `yaml:"tokens"`
}

// ProviderConfig holds the configuration for an outbound REST provider.
type ProviderConfig struct {
	BaseURL          string  `yaml:"baseURL"`
	RequestTimeoutMs int64   `yaml:"requestTimeoutMs"`
	RateLimitPerSec  float64 `yaml:"rateLimitPerSec"`
	RateBurst        int     `yaml:"rateBurst"`
}

// PriceProviderConfig extends ProviderConfig with cache settings.
type PriceProviderConfig struct {
	ProviderConfig  `yaml:",inline"`
	CacheTTLMinutes int `yaml:"cacheTTLMinutes"`
}

// SessionConfig holds session lifecycle tunables.
type SessionConfig struct {
	RefreshIntervalSeconds    int `yaml:"refreshIntervalSeconds"`
	IdleTimeoutSeconds        int `yaml:"idleTimeoutSeconds"`
	ReceiptPollAttempts       int `yaml:"receiptPollAttempts"`
	ReceiptPollIntervalSecond int `yaml:"receiptPollIntervalSeconds"`
	EstimateDebounceMs        int `yaml:"estimateDebounceMs"`
	HistoryPageSize           int `yaml:"historyPageSize"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// Secrets are read from the environment, never from the YAML file.
type Secrets struct {
	BalanceAPIKey string `envconfig:"BALANCE_API_KEY"`
	HistoryAPIKey string `envconfig:"HISTORY_API_KEY"`
	TronAPIKey    string `envconfig:"TRON_API_KEY"`
}

// LoadSecrets reads provider credentials from environment variables.
func LoadSecrets() (*Secrets, error) {
	s := &Secrets{}
	if err := envconfig.Process("", s); err != nil {
		return nil, fmt.Errorf("failed to process secrets from environment: %w", err)
	}
	return s, nil
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	cfg.applyDefaults()

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

// Default returns a configuration built entirely from defaults, used when no
// YAML file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if len(c.Networks) == 0 {
		c.Networks = DefaultEVMNetworks()
		logrus.Infof("No networks configured, defaulting to %d built-in EVM networks", len(c.Networks))
	}
	if c.Tron.NodeURL == "" {
		c.Tron.NodeURL = "https://api.trongrid.io"
	}
	if c.Tron.BlockExplorerURL == "" {
		c.Tron.BlockExplorerURL = "https://tronscan.org/#"
	}
	if c.Tron.RequestTimeoutMs == 0 {
		c.Tron.RequestTimeoutMs = 10000
	}
	if len(c.Tron.Tokens) == 0 {
		c.Tron.Tokens = DefaultTronTokens()
	}
	if c.Balance.BaseURL == "" {
		c.Balance.BaseURL = "https://deep-index.moralis.io/api/v2.2"
	}
	if c.Balance.RequestTimeoutMs == 0 {
		c.Balance.RequestTimeoutMs = 10000
	}
	if c.Balance.RateLimitPerSec == 0 {
		c.Balance.RateLimitPerSec = 5
	}
	if c.Balance.RateBurst == 0 {
		c.Balance.RateBurst = 5
	}
	if c.History.BaseURL == "" {
		c.History.BaseURL = "https://api.covalenthq.com/v1"
	}
	if c.History.RequestTimeoutMs == 0 {
		c.History.RequestTimeoutMs = 10000
	}
	if c.History.RateLimitPerSec == 0 {
		c.History.RateLimitPerSec = 5
	}
	if c.History.RateBurst == 0 {
		c.History.RateBurst = 5
	}
	if c.Price.BaseURL == "" {
		c.Price.BaseURL = "https://api.blockchain.info"
	}
	if c.Price.RequestTimeoutMs == 0 {
		c.Price.RequestTimeoutMs = 10000
	}
	if c.Price.RateLimitPerSec == 0 {
		c.Price.RateLimitPerSec = 2
	}
	if c.Price.RateBurst == 0 {
		c.Price.RateBurst = 2
	}
	if c.Price.CacheTTLMinutes == 0 {
		c.Price.CacheTTLMinutes = 5
	}
	if c.Session.RefreshIntervalSeconds == 0 {
		c.Session.RefreshIntervalSeconds = 30
	}
	if c.Session.IdleTimeoutSeconds == 0 {
		c.Session.IdleTimeoutSeconds = 900
	}
	if c.Session.ReceiptPollAttempts == 0 {
		c.Session.ReceiptPollAttempts = 20
	}
	if c.Session.ReceiptPollIntervalSecond == 0 {
		c.Session.ReceiptPollIntervalSecond = 3
	}
	if c.Session.EstimateDebounceMs == 0 {
		c.Session.EstimateDebounceMs = 500
	}
	if c.Session.HistoryPageSize == 0 {
		c.Session.HistoryPageSize = 15
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// FindEVMNetwork returns the definition for a chain id.
func (c *Config) FindEVMNetwork(chainID uint64) (entity.NetworkDefinition, bool) {
	for _, n := range c.Networks {
		if n.ChainID == chainID {
			return n, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// FindNetworkByName resolves a network name from a wallet link into a network
// kind and chain id.
func (c *Config) FindNetworkByName(name string) (entity.NetworkKind, uint64, bool) {
	if name == string(entity.NetworkTron) {
		return entity.NetworkTron, 0, true
	}
	for _, n := range c.Networks {
		if n.Name == name {
			return entity.NetworkEVM, n.ChainID, true
		}
	}
	return "", 0, false
}

// NetworkName is the inverse of FindNetworkByName, used when encoding wallet
// links.
func (c *Config) NetworkName(kind entity.NetworkKind, chainID uint64) (string, bool) {
	if kind == entity.NetworkTron {
		return string(entity.NetworkTron), true
	}
	if n, ok := c.FindEVMNetwork(chainID); ok {
		return n.Name, true
	}
	return "", false
}
