package server

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

const (
	defaultAddress   = "localhost"
	defaultPort      = 8080
	defaultLogLevel  = "info"
	defaultReadLimit = 8192
)

// Config represents the complete server configuration
type Config struct {
	Server *Settings `hcl:"server,block"`
}

// Settings contains server-level configuration. Every field can be
// overridden from the environment.
type Settings struct {
	Address   string `hcl:"address,optional" env:"GUESSINGGAME_ADDRESS"`
	Port      int    `hcl:"port,optional" env:"GUESSINGGAME_PORT"`
	LogLevel  string `hcl:"log_level,optional" env:"GUESSINGGAME_LOG_LEVEL"`
	ReadLimit int64  `hcl:"read_limit,optional" env:"GUESSINGGAME_READ_LIMIT"`
	Seed      *int64 `hcl:"seed,optional" env:"GUESSINGGAME_SEED"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: &Settings{
			Address:   defaultAddress,
			Port:      defaultPort,
			LogLevel:  defaultLogLevel,
			ReadLimit: defaultReadLimit,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &Settings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}
	if c.Server.ReadLimit == 0 {
		c.Server.ReadLimit = defaultReadLimit
	}
}

// ApplyEnv overrides settings from GUESSINGGAME_* environment variables
func (c *Config) ApplyEnv() error {
	c.applyDefaults()
	if err := env.Parse(c.Server); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server == nil {
		return fmt.Errorf("server block is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Server.ReadLimit < 64 {
		return fmt.Errorf("read limit must be at least 64 bytes, got %d", c.Server.ReadLimit)
	}

	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
