package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/mcp-server-template/cmd"
	"github.com/user/mcp-server-template/config"
	"github.com/user/mcp-server-template/engine"
	"github.com/user/mcp-server-template/logging"
	"github.com/user/mcp-server-template/router"
	"github.com/user/mcp-server-template/server"
	"github.com/user/mcp-server-template/tools"
)

func main() {
	args, err := cmd.ParseArgs()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if args.Command == "help" {
		printHelp()
		return
	}

	cfg, err := cmd.LoadConfig(args, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Debug:  cfg.App.Debug,
	})

	switch args.Command {
	case "version":
		fmt.Printf("%s v%s\n", cfg.App.Name, cfg.App.Version)
		return
	case "routes":
		os.Exit(runRoutes(cfg, logger))
	case "sessions":
		os.Exit(runSessions(cfg, args.Rest))
	case "tools":
		os.Exit(runTools(cfg))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	srv, err := server.NewServer(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to start", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer srv.Close()

	switch cfg.Server.Mode {
	case "stdio":
		_, err = srv.App().Engine().Run(ctx, engine.StdioTransport{})
	case "cgi":
		err = srv.ServeCGI()
	default:
		err = srv.ListenAndServe(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", logging.Fields{"mode": cfg.Server.Mode, "error": err.Error()})
		srv.Close()
		os.Exit(1)
	}
}

func runRoutes(cfg *config.Config, logger logging.Logger) int {
	srv, err := server.NewServer(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer srv.Close()

	table, err := srv.App().Routes(router.NewResponse())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	cmd.FormatRoutes(os.Stdout, table.Routes())
	return 0
}

// runSessions lists the session index. "sessions prune <age>" drops
// sessions idle for longer than age first.
func runSessions(cfg *config.Config, rest []string) int {
	store, err := engine.OpenSessionStore(cfg.SessionsPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	if len(rest) > 0 && rest[0] == "prune" {
		age := 24 * time.Hour
		if len(rest) > 1 {
			if age, err = time.ParseDuration(rest[1]); err != nil {
				fmt.Fprintf(os.Stderr, "invalid age %q: %v\n", rest[1], err)
				return 2
			}
		}
		n, err := store.Prune(time.Now().Add(-age))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Printf("pruned %d sessions idle for more than %s\n", n, age)
	}

	sessions, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	cmd.FormatSessions(os.Stdout, sessions, time.Now())
	return 0
}

func runTools(cfg *config.Config) int {
	cat, err := tools.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	cmd.FormatCatalogue(os.Stdout, cat.List(), cfg.MCP.DiscoveryDirs)
	return 0
}

func printHelp() {
	fmt.Println(`mcp-server - MCP server template

Usage:
  mcp-server [command] [flags]

Commands:
  serve                  Serve in the configured mode (default http)
  stdio                  Serve MCP over stdin/stdout
  cgi                    Handle one request from the CGI environment
  routes                 Print the route table
  sessions [prune AGE]   List recorded sessions, optionally pruning idle ones
  tools                  List the tool catalogue and enabled groups
  version                Print the server name and version
  help                   Show this help

Flags:
  -config PATH           YAML or TOML config file (env MCP_CONFIG)
  -mode MODE             http, stdio or cgi (default http)
  -listen ADDR           HTTP listen address (default :8080)
  -endpoint PATH         MCP endpoint path (default /mcp)
  -sessions-dir DIR      Session index directory
  -log-level LEVEL       debug, info, warn, error (default info)
  -log-format FORMAT     text or json (default text)
  -stateless             Fresh protocol session per HTTP request
  -debug                 Verbose logging, including the protocol library

Environment:
  APP_DEBUG, MCP_DEBUG   "true" enables debug logging
  APP_VERSION            Server version reported to clients
  MCP_SESSIONS_DIR       Session index directory
  MCP_JWT_SECRET         Require HS256 bearer tokens on the MCP endpoint`)
}
