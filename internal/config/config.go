// Package config loads and validates the daemon configuration. The native
// format is HCL; files ending in .yaml or .yml are decoded as YAML with the
// same schema.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	yaml "gopkg.in/yaml.v2"

	"grimm.is/shunt/internal/logging"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultTable       = "mangle"
	DefaultPollTimeout = "500ms"
)

// DefaultChains are the chains diverted when none are configured: inbound and
// outbound traffic of the host itself.
var DefaultChains = []string{"INPUT", "OUTPUT"}

// Config is the top-level daemon configuration.
type Config struct {
	LogLevel string         `hcl:"log_level,optional" yaml:"log_level"`
	Divert   *DivertConfig  `hcl:"divert,block" yaml:"divert"`
	Metrics  *MetricsConfig `hcl:"metrics,block" yaml:"metrics"`
}

// DivertConfig controls the packet diversion layer.
type DivertConfig struct {
	Table              string   `hcl:"table,optional" yaml:"table"`
	Chains             []string `hcl:"chains,optional" yaml:"chains"`
	PollTimeout        string   `hcl:"poll_timeout,optional" yaml:"poll_timeout"`
	RedirectInterfaces []string `hcl:"redirect_interfaces,optional" yaml:"redirect_interfaces"`
	LocalDNS           bool     `hcl:"local_dns,optional" yaml:"local_dns"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Listen string `hcl:"listen,optional" yaml:"listen"`
}

// Default returns a configuration with every default applied, suitable for
// running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads, decodes, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
		}
		if diags := gohcl.DecodeBody(file.Body, nil, cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %s", path, diags.Error())
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Divert == nil {
		c.Divert = &DivertConfig{}
	}
	if c.Divert.Table == "" {
		c.Divert.Table = DefaultTable
	}
	if len(c.Divert.Chains) == 0 {
		c.Divert.Chains = append([]string(nil), DefaultChains...)
	}
	if c.Divert.PollTimeout == "" {
		c.Divert.PollTimeout = DefaultPollTimeout
	}
}

// Validate checks the configuration for values that cannot work at runtime.
// Call after ApplyDefaults.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if c.Divert.Table == "" {
		return fmt.Errorf("divert.table must not be empty")
	}
	for _, chain := range c.Divert.Chains {
		if strings.TrimSpace(chain) == "" {
			return fmt.Errorf("divert.chains must not contain empty names")
		}
	}
	d, err := time.ParseDuration(c.Divert.PollTimeout)
	if err != nil {
		return fmt.Errorf("divert.poll_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("divert.poll_timeout must be positive, got %s", d)
	}
	return nil
}

// PollTimeout returns the parsed poll timeout. Validate has already checked
// that the value parses.
func (c *Config) PollTimeout() time.Duration {
	d, err := time.ParseDuration(c.Divert.PollTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultPollTimeout)
	}
	return d
}
