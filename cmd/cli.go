package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/mcp-server-template/config"
)

// Commands understood by the binary. An empty command means serve in the
// configured mode.
var Commands = []string{"serve", "stdio", "cgi", "routes", "sessions", "tools", "version", "help"}

type CLIArgs struct {
	Command     string
	ListenAddr  string
	Mode        string
	LogLevel    string
	LogFormat   string
	ConfigPath  string
	SessionsDir string
	Endpoint    string
	Debug       bool
	Stateless   bool
	Rest        []string

	set map[string]bool
}

func ParseArgs() (CLIArgs, error) {
	return ParseArgsWithArgs(os.Args[1:], os.Stderr)
}

// ParseArgsWithArgs accepts the command either before or after the flags.
func ParseArgsWithArgs(args []string, output io.Writer) (CLIArgs, error) {
	cliArgs := CLIArgs{set: make(map[string]bool)}

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cliArgs.Command = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("mcp-server", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	fs.StringVar(&cliArgs.ListenAddr, "listen", ":8080", "HTTP listen address")
	fs.StringVar(&cliArgs.Mode, "mode", "http", "Serve mode: http, stdio or cgi")
	fs.StringVar(&cliArgs.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cliArgs.LogFormat, "log-format", "text", "Log format: text or json")
	fs.StringVar(&cliArgs.ConfigPath, "config", os.Getenv("MCP_CONFIG"), "YAML or TOML config file (env MCP_CONFIG)")
	fs.StringVar(&cliArgs.SessionsDir, "sessions-dir", "", "Directory for the session index")
	fs.StringVar(&cliArgs.Endpoint, "endpoint", "/mcp", "Path of the MCP endpoint")
	fs.BoolVar(&cliArgs.Debug, "debug", false, "Verbose logging, including the protocol library")
	fs.BoolVar(&cliArgs.Stateless, "stateless", false, "Treat every HTTP request as a fresh protocol session")

	if err := fs.Parse(args); err != nil {
		return cliArgs, err
	}
	fs.Visit(func(f *flag.Flag) { cliArgs.set[f.Name] = true })

	cliArgs.Rest = fs.Args()
	if cliArgs.Command == "" && len(cliArgs.Rest) > 0 {
		cliArgs.Command = cliArgs.Rest[0]
		cliArgs.Rest = cliArgs.Rest[1:]
	}
	if cliArgs.Command != "" && !isCommand(cliArgs.Command) {
		return cliArgs, fmt.Errorf("unknown command %q", cliArgs.Command)
	}

	return cliArgs, nil
}

func isCommand(name string) bool {
	for _, c := range Commands {
		if c == name {
			return true
		}
	}
	return false
}

// Apply overlays the flags that were given explicitly. The serve-mode
// commands pick their mode regardless of -mode.
func (a CLIArgs) Apply(cfg *config.Config) {
	if a.set["listen"] {
		cfg.Server.ListenAddr = a.ListenAddr
	}
	if a.set["mode"] {
		cfg.Server.Mode = a.Mode
	}
	if a.set["log-level"] {
		cfg.Logging.Level = a.LogLevel
	}
	if a.set["log-format"] {
		cfg.Logging.Format = a.LogFormat
	}
	if a.set["sessions-dir"] {
		cfg.MCP.SessionsDir = a.SessionsDir
	}
	if a.set["endpoint"] {
		cfg.Server.Endpoint = a.Endpoint
	}
	if a.Debug {
		cfg.App.Debug = true
	}
	if a.Stateless {
		cfg.MCP.Stateless = true
	}

	switch a.Command {
	case "stdio", "cgi":
		cfg.Server.Mode = a.Command
	case "serve":
		if !a.set["mode"] {
			cfg.Server.Mode = "http"
		}
	}
}

// LoadConfig reads the config file, then environment switches, then flags,
// and validates the result.
func LoadConfig(a CLIArgs, lookup func(string) string) (*config.Config, error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(lookup)
	a.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
