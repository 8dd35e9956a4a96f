package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment selects local vs. cloud browser provisioning.
type Environment string

const (
	EnvLocal  Environment = "LOCAL"
	EnvRemote Environment = "REMOTE"
)

// Config is a session's immutable-after-construction configuration.
type Config struct {
	Env Environment `yaml:"env"`

	// Verbosity gates log mirroring into the in-page console: 0 only
	// warnings/errors, 1 adds info, 2 adds debug.
	Verbosity int `yaml:"verbosity"`

	DebugDOM     bool   `yaml:"debug_dom"`
	DefaultModel string `yaml:"default_model"`
	Headless     bool   `yaml:"headless"`

	// DOMSettleTimeout is the default settle deadline. Zero uses
	// dom.DefaultSettleTimeout (60s).
	DOMSettleTimeout time.Duration `yaml:"dom_settle_timeout"`

	EnableCaching bool   `yaml:"enable_caching"`
	CachePath     string `yaml:"cache_path"`

	// SanitizePolicy is one of sanitize.PolicyStrict/Relaxed/Off.
	SanitizePolicy string `yaml:"sanitize_policy"`

	// MCPTransport selects what cmd/domloop serves: "stdio" serves
	// RegisterMCP's tools over stdio; "http" serves the chi-routed HTTP
	// surface at HTTPAddr instead (no MCP).
	MCPTransport string `yaml:"mcp_transport"`

	// HTTPAddr is the listen address for cmd/domloop's chi-routed HTTP
	// surface, e.g. ":8080".
	HTTPAddr string `yaml:"http_addr"`
}

func (c *Config) defaults() {
	if c.Env == "" {
		c.Env = EnvLocal
	}
	if c.DOMSettleTimeout <= 0 {
		c.DOMSettleTimeout = 60 * time.Second
	}
	if c.SanitizePolicy == "" {
		c.SanitizePolicy = "strict"
	}
	if c.MCPTransport == "" {
		c.MCPTransport = "stdio"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
}

// LoadYAML decodes a Config from YAML at path, mirroring
// domwatch/internal/config's file-loading convention.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("agent: load config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("agent: parse config: %w", err)
	}
	cfg.defaults()
	return cfg, nil
}
