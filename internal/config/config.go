// Package config loads the on-disk YAML configuration with environment
// variable overrides for deployment secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Binance BinanceConfig `yaml:"binance"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// AllowedOrigins feeds the CORS layer; empty allows none.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Duration wraps time.Duration so YAML accepts "15s" style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type AuthConfig struct {
	// JWTSecret verifies caller tokens. The STRATEGY_LAB_JWT_SECRET
	// environment variable overrides it so the secret can stay out of
	// config files.
	JWTSecret string `yaml:"jwt_secret"`
}

type StorageConfig struct {
	// UseMemory swaps both databases for in-memory stores.
	UseMemory     string `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

type BinanceConfig struct {
	RESTEndpoint string `yaml:"rest_endpoint"`
	WSEndpoint   string `yaml:"ws_endpoint"`
}

// Load reads, overrides and validates configuration.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the configuration used when fields are omitted.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STRATEGY_LAB_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("STRATEGY_LAB_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("STRATEGY_LAB_CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
}

// UseMemoryStores reports whether in-memory storage was requested.
func (c *Config) UseMemoryStores() bool {
	return c.Storage.UseMemory == "true" || c.Storage.UseMemory == "1" || c.Storage.UseMemory == "yes"
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (or STRATEGY_LAB_JWT_SECRET)")
	}
	if !c.UseMemoryStores() {
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required unless storage.use_memory is set")
		}
		if c.Storage.ClickhouseDSN == "" {
			return errors.New("storage.clickhouse_dsn is required unless storage.use_memory is set")
		}
	}
	return nil
}
