// Package config loads service configuration from environment variables and
// command-line flags.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Config is the full set of recognized options for the shortener core and
// the HTTP layer that sits in front of it.
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS"`
	BaseURL       string `env:"BASE_URL"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	LogEnv        string `env:"LOG_ENV"`

	ShortenerLength      int    `env:"SHORTENER_LENGTH"`
	ShortenerAlphabet    string `env:"SHORTENER_ALPHABET"`
	ShortenerEngineKind  string `env:"SHORTENER_ENGINE_KIND"`
	ShortenerRetryBudget int    `env:"SHORTENER_RETRY_BUDGET"`

	BloomTargetCapacity      uint64  `env:"BLOOM_TARGET_CAPACITY"`
	BloomFalsePositiveRate   float64 `env:"BLOOM_FALSE_POSITIVE_RATE"`
	BloomSnapshotIntervalSec int     `env:"BLOOM_SNAPSHOT_INTERVAL_SECONDS"`
	BloomSnapshotName        string  `env:"BLOOM_SNAPSHOT_NAME"`

	DedupEnabled bool `env:"DEDUP_ENABLED" envDefault:"true"`

	AliasMaxLength int      `env:"ALIAS_MAX_LENGTH"`
	AliasReserved  []string `env:"ALIAS_RESERVED" envSeparator:","`

	StoreMaxURLLength int `env:"STORE_MAX_URL_LENGTH"`
}

// ParseFlags parses environment variables first, then flags (using the
// environment values as flag defaults for every option except -a, -b and
// -d), and finally re-applies non-empty SERVER_ADDRESS, BASE_URL and
// DATABASE_DSN values over the flags. For those three options an
// operator's environment wins over whatever flags happen to be baked into
// a launch script; for the other options an explicitly set flag wins.
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	envServerAddress := cfg.ServerAddress
	envBaseURL := cfg.BaseURL
	envDatabaseDSN := cfg.DatabaseDSN

	flag.StringVar(&cfg.ServerAddress, "a", "localhost:8080", "Address of the server")
	flag.StringVar(&cfg.BaseURL, "b", "http://localhost:8080", "Base URL for short URLs")
	flag.StringVar(&cfg.DatabaseDSN, "d", "", "PostgreSQL connection DSN")
	flag.StringVar(&cfg.LogEnv, "log-env", cfg.LogEnv, "Logger environment: development or production")

	flag.IntVar(&cfg.ShortenerLength, "shortener-length", cfg.ShortenerLength, "Primary code length")
	flag.StringVar(&cfg.ShortenerAlphabet, "shortener-alphabet", cfg.ShortenerAlphabet, "Code alphabet spec, e.g. 0-9A-Za-z")
	flag.StringVar(&cfg.ShortenerEngineKind, "shortener-engine", cfg.ShortenerEngineKind, "nanoid or sequence")
	flag.IntVar(&cfg.ShortenerRetryBudget, "shortener-retry-budget", cfg.ShortenerRetryBudget, "Candidate generation retry budget")

	flag.Uint64Var(&cfg.BloomTargetCapacity, "bloom-capacity", cfg.BloomTargetCapacity, "Expected total issued codes")
	flag.Float64Var(&cfg.BloomFalsePositiveRate, "bloom-fpr", cfg.BloomFalsePositiveRate, "Target bloom false-positive rate")
	flag.IntVar(&cfg.BloomSnapshotIntervalSec, "bloom-snapshot-interval", cfg.BloomSnapshotIntervalSec, "Snapshot interval in seconds")
	flag.StringVar(&cfg.BloomSnapshotName, "bloom-snapshot-name", cfg.BloomSnapshotName, "Snapshot row name")

	flag.BoolVar(&cfg.DedupEnabled, "dedup", cfg.DedupEnabled, "Enable URL content deduplication")

	flag.IntVar(&cfg.AliasMaxLength, "alias-max-length", cfg.AliasMaxLength, "Maximum alias length")
	flag.IntVar(&cfg.StoreMaxURLLength, "max-url-length", cfg.StoreMaxURLLength, "Maximum accepted URL length")

	flag.Parse()

	if envServerAddress != "" {
		cfg.ServerAddress = envServerAddress
	}
	if envBaseURL != "" {
		cfg.BaseURL = envBaseURL
	}
	if envDatabaseDSN != "" {
		cfg.DatabaseDSN = envDatabaseDSN
	}

	cfg.applyDefaultValues()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.ShortenerLength <= 0 {
		return fmt.Errorf("shortener length must be positive")
	}
	switch c.ShortenerEngineKind {
	case "nanoid", "sequence":
	default:
		return fmt.Errorf("shortener engine kind must be nanoid or sequence, got %q", c.ShortenerEngineKind)
	}
	if c.BloomFalsePositiveRate <= 0 || c.BloomFalsePositiveRate >= 1 {
		return fmt.Errorf("bloom false positive rate must be in (0,1)")
	}
	if c.AliasMaxLength <= 0 {
		return fmt.Errorf("alias max length must be positive")
	}
	if c.StoreMaxURLLength <= 0 {
		return fmt.Errorf("max url length must be positive")
	}
	return nil
}

func (c *Config) applyDefaultValues() {
	if c.ServerAddress == "" {
		c.ServerAddress = "localhost:8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.LogEnv == "" {
		c.LogEnv = "development"
	}
	if c.ShortenerLength == 0 {
		c.ShortenerLength = 7
	}
	if c.ShortenerAlphabet == "" {
		c.ShortenerAlphabet = "0-9A-Za-z"
	}
	if c.ShortenerEngineKind == "" {
		c.ShortenerEngineKind = "nanoid"
	}
	if c.ShortenerRetryBudget == 0 {
		c.ShortenerRetryBudget = 16
	}
	if c.BloomTargetCapacity == 0 {
		c.BloomTargetCapacity = 10_000_000
	}
	if c.BloomFalsePositiveRate == 0 {
		c.BloomFalsePositiveRate = 0.01
	}
	if c.BloomSnapshotIntervalSec == 0 {
		c.BloomSnapshotIntervalSec = 60
	}
	if c.BloomSnapshotName == "" {
		c.BloomSnapshotName = "short_to_long"
	}
	if c.AliasMaxLength == 0 {
		c.AliasMaxLength = 50
	}
	if c.StoreMaxURLLength == 0 {
		c.StoreMaxURLLength = 2048
	}

	for i, r := range c.AliasReserved {
		c.AliasReserved[i] = strings.ToLower(strings.TrimSpace(r))
	}
}
