package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	App     AppConfig     `yaml:"app" toml:"app"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	MCP     MCPConfig     `yaml:"mcp" toml:"mcp"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	Auth    AuthConfig    `yaml:"auth" toml:"auth"`
}

// AppConfig identifies the server towards MCP clients.
type AppConfig struct {
	Name    string `yaml:"name" toml:"name" validate:"required"`
	Version string `yaml:"version" toml:"version" validate:"required"`
	Debug   bool   `yaml:"debug" toml:"debug"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Mode        string `yaml:"mode" toml:"mode" validate:"oneof=http stdio cgi"`
	ListenAddr  string `yaml:"listen" toml:"listen" validate:"required_if=Mode http"`
	Endpoint    string `yaml:"endpoint" toml:"endpoint" validate:"required,startswith=/"`
	Compression bool   `yaml:"compression" toml:"compression"`
}

// MCPConfig configures the protocol engine.
type MCPConfig struct {
	DiscoveryRoot string   `yaml:"discovery_root" toml:"discovery_root"`
	DiscoveryDirs []string `yaml:"discovery_dirs" toml:"discovery_dirs" validate:"min=1,dive,required"`
	SessionsDir   string   `yaml:"sessions_dir" toml:"sessions_dir" validate:"required"`
	Stateless     bool     `yaml:"stateless" toml:"stateless"`
	JSONResponse  bool     `yaml:"json_response" toml:"json_response"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" toml:"format" validate:"omitempty,oneof=text json"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path" validate:"omitempty,startswith=/"`
}

// AuthConfig enables bearer-token checks on the MCP endpoint when a secret
// is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
	Issuer    string `yaml:"issuer" toml:"issuer"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "MCP Server",
			Version: "0.0.0",
		},
		Server: ServerConfig{
			Mode:        "http",
			ListenAddr:  ":8080",
			Endpoint:    "/mcp",
			Compression: true,
		},
		MCP: MCPConfig{
			DiscoveryRoot: ".",
			DiscoveryDirs: []string{"examples", "calculator"},
			SessionsDir:   filepath.Join("storage", "mcp-sessions"),
			JSONResponse:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML or TOML file on top of Default. Environment references
// of the form ${VAR} and ${VAR:-fallback} are expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := ExpandEnv(string(data), os.Getenv)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	return cfg, nil
}

// ApplyEnv overlays the environment switches the server honours.
func (c *Config) ApplyEnv(lookup func(string) string) {
	if lookup("APP_DEBUG") == "true" || lookup("MCP_DEBUG") == "true" {
		c.App.Debug = true
	}
	if v := lookup("APP_VERSION"); v != "" {
		c.App.Version = v
	}
	if v := lookup("MCP_SESSIONS_DIR"); v != "" {
		c.MCP.SessionsDir = v
	}
	if v := lookup("MCP_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}

var validate = validator.New()

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return fmt.Errorf("validating config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// SessionsPath resolves the sessions directory against the discovery root
// when it is relative.
func (c *Config) SessionsPath() string {
	if filepath.IsAbs(c.MCP.SessionsDir) || c.MCP.DiscoveryRoot == "" {
		return c.MCP.SessionsDir
	}
	return filepath.Join(c.MCP.DiscoveryRoot, c.MCP.SessionsDir)
}
