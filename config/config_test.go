package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Server.Mode)
	assert.Equal(t, "/mcp", cfg.Server.Endpoint)
	assert.Equal(t, filepath.Join("storage", "mcp-sessions"), cfg.MCP.SessionsDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("TEST_MCP_NAME", "Calculator")
	path := writeFile(t, "config.yaml", `
app:
  name: "${TEST_MCP_NAME}"
  version: "${TEST_MCP_VERSION:-1.2.3}"
server:
  listen: "127.0.0.1:9090"
mcp:
  discovery_dirs: ["calculator"]
  sessions_dir: /tmp/sessions
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Calculator", cfg.App.Name)
	assert.Equal(t, "1.2.3", cfg.App.Version)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.ListenAddr)
	assert.Equal(t, []string{"calculator"}, cfg.MCP.DiscoveryDirs)
	assert.Equal(t, "/tmp/sessions", cfg.SessionsPath())
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched sections keep their defaults
	assert.Equal(t, "/mcp", cfg.Server.Endpoint)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[app]
name = "Toml Server"
version = "2.0.0"

[server]
mode = "stdio"

[metrics]
enabled = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Toml Server", cfg.App.Name)
	assert.Equal(t, "stdio", cfg.Server.Mode)
	assert.False(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	_, err = Load(writeFile(t, "config.json", `{}`))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(writeFile(t, "broken.yaml", "app: [unterminated"))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown mode", func(c *Config) { c.Server.Mode = "grpc" }, "Mode"},
		{"relative endpoint", func(c *Config) { c.Server.Endpoint = "mcp" }, "Endpoint"},
		{"empty name", func(c *Config) { c.App.Name = "" }, "Name"},
		{"no discovery dirs", func(c *Config) { c.MCP.DiscoveryDirs = nil }, "DiscoveryDirs"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "Level"},
		{"http without listen", func(c *Config) { c.Server.ListenAddr = "" }, "ListenAddr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestStdioModeNeedsNoListenAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Mode = "stdio"
	cfg.Server.ListenAddr = ""
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MCP_DEBUG":        "true",
		"APP_VERSION":      "9.9.9",
		"MCP_SESSIONS_DIR": "/var/lib/mcp",
		"MCP_JWT_SECRET":   "s3cret",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "9.9.9", cfg.App.Version)
	assert.Equal(t, "/var/lib/mcp", cfg.MCP.SessionsDir)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestApplyEnvDebugNeedsLiteralTrue(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(k string) string {
		if k == "APP_DEBUG" {
			return "1"
		}
		return ""
	})
	assert.False(t, cfg.App.Debug)
}

func TestSessionsPathJoinsDiscoveryRoot(t *testing.T) {
	cfg := Default()
	cfg.MCP.DiscoveryRoot = "/srv/app"
	assert.Equal(t, filepath.Join("/srv/app", "storage", "mcp-sessions"), cfg.SessionsPath())
}

func TestExpandEnv(t *testing.T) {
	env := map[string]string{"HOST": "example.com", "EMPTY": ""}
	lookup := func(k string) string { return env[k] }

	tests := []struct {
		in   string
		want string
	}{
		{"${HOST}", "example.com"},
		{"$HOST:8080", "example.com:8080"},
		{"${MISSING:-fallback}", "fallback"},
		{"${EMPTY:-fallback}", "fallback"},
		{"${HOST:-fallback}", "example.com"},
		{"${MISSING}", ""},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandEnv(tt.in, lookup), "input %q", tt.in)
	}
}
