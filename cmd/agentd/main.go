// Command agentd runs an A2A task-dispatch agent.
//
// Usage:
//
//	agentd serve --config agent.yaml
//	agentd validate --config agent.yaml
//	agentd version
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentlink"
	"github.com/hupe1980/agentlink/capability"
	"github.com/hupe1980/agentlink/config"
	"github.com/hupe1980/agentlink/conversation"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/engine"
	"github.com/hupe1980/agentlink/engine/anthropic"
	"github.com/hupe1980/agentlink/engine/openai"
	"github.com/hupe1980/agentlink/logging"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the A2A server."`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration file."`

	Config string `short:"c" default:"agent.yaml" help:"Path to config file." type:"path"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentd version %s\n", version)
	return nil
}

// ValidateCmd loads the configuration and reports the first problem found.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if _, err := config.Load(cli.Config); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", cli.Config)
	return nil
}

// ServeCmd starts the A2A server.
type ServeCmd struct {
	Addr string `help:"Listen address, overrides the config value." placeholder:"HOST:PORT"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(cfg.Engine)
	if err != nil {
		return err
	}

	var invoker core.Invoker
	if cfg.MCP != nil {
		mcp, err := capability.NewStdioMCPInvoker(ctx, cfg.MCP.Command, cfg.MCP.Env, cfg.MCP.Args)
		if err != nil {
			return fmt.Errorf("starting MCP invoker: %w", err)
		}
		defer mcp.Close()
		invoker = mcp
	}

	var persistent core.ConversationStore
	if cfg.Memory.Backend == config.BackendPersistent {
		db, err := conversation.OpenSQLite(cfg.Memory.DSN)
		if err != nil {
			return fmt.Errorf("opening conversation database: %w", err)
		}
		store, err := conversation.NewGormStore(db, func(o *conversation.GormStoreOptions) {
			o.TTL = cfg.Memory.TTLOrDefault()
			o.Logger = logger
		})
		if err != nil {
			return fmt.Errorf("preparing conversation store: %w", err)
		}
		persistent = store
	}

	dispatcher := agentlink.New(cfg.AgentCard(), eng, func(o *agentlink.Options) {
		o.SelfID = cfg.Agent.ID
		o.Peers = cfg.Peers
		o.Invoker = invoker
		o.PersistentStore = persistent
		o.Logger = logger
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           dispatcher.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("agentd.listening", "addr", cfg.Server.Addr, "agent", cfg.Agent.Name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("agentd.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func buildEngine(cfg config.EngineConfig) (core.Engine, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			o.SystemPrompt = cfg.SystemPrompt
		}), nil
	case "openai":
		return openai.New(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			o.SystemPrompt = cfg.SystemPrompt
		}), nil
	case "mock":
		return engine.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Provider)
	}
}

func newLogger(cfg config.LoggingConfig) logging.Logger {
	return logging.New(&logging.Config{
		Level:  logging.ParseLevel(cfg.Level),
		Format: cfg.Format,
	})
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("agentd"),
		kong.Description("A2A task-dispatch agent daemon"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
