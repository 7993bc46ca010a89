// Package config loads and validates the docserve configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Registry  RegistryConfig  `yaml:"registry"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ListenConfig holds the server ports.
type ListenConfig struct {
	DocsPort  int `yaml:"docs_port"`
	AdminPort int `yaml:"admin_port"`
}

// StorageConfig locates the built-docs store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig locates the metadata database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig configures the registry index and metadata API.
type RegistryConfig struct {
	IndexURL     string   `yaml:"index_url"`
	IndexPath    string   `yaml:"index_path"`
	APIBase      string   `yaml:"api_base"`
	SyncInterval Duration `yaml:"sync_interval"`
}

// TelemetryConfig configures out-of-band error reporting. When the NATS URL
// is empty, reports go to the log instead.
type TelemetryConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			DocsPort:  3000,
			AdminPort: 3001,
		},
		Storage:  StorageConfig{Path: "./data/docs"},
		Database: DatabaseConfig{Path: "./data/docserve.db"},
		Registry: RegistryConfig{
			IndexURL:     "https://github.com/rust-lang/crates.io-index",
			IndexPath:    "./data/index",
			APIBase:      "https://crates.io",
			SyncInterval: Duration(5 * time.Minute),
		},
		Telemetry: TelemetryConfig{Subject: "docserve.errors"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration file at path, expands ${ENV} references and
// applies defaults for missing values. A .env file next to the working
// directory is loaded first (best effort, existing env wins).
func Load(path string) (*Config, error) {
	// Existing process environment takes precedence over .env contents.
	_ = godotenv.Load()

	// #nosec G304 - path is the operator-provided config file
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Listen.DocsPort == 0 {
		c.Listen.DocsPort = def.Listen.DocsPort
	}
	if c.Listen.AdminPort == 0 {
		c.Listen.AdminPort = def.Listen.AdminPort
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Registry.IndexPath == "" {
		c.Registry.IndexPath = def.Registry.IndexPath
	}
	if c.Registry.SyncInterval == 0 {
		c.Registry.SyncInterval = def.Registry.SyncInterval
	}
	if c.Telemetry.Subject == "" {
		c.Telemetry.Subject = def.Telemetry.Subject
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Listen.DocsPort <= 0 || c.Listen.DocsPort > 65535 {
		return fmt.Errorf("invalid docs port %d", c.Listen.DocsPort)
	}
	if c.Listen.AdminPort <= 0 || c.Listen.AdminPort > 65535 {
		return fmt.Errorf("invalid admin port %d", c.Listen.AdminPort)
	}
	if c.Listen.DocsPort == c.Listen.AdminPort {
		return fmt.Errorf("docs and admin ports must differ (both %d)", c.Listen.DocsPort)
	}
	if c.Registry.SyncInterval.Std() < time.Second {
		return fmt.Errorf("registry sync interval %s is below one second", c.Registry.SyncInterval.Std())
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// WriteDefault writes a commented default configuration to path.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
