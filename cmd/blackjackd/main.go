package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack21/internal/ledger"
	"github.com/lox/blackjack21/internal/server"
	"github.com/lox/blackjack21/internal/table"
)

var CLI struct {
	Config   string `short:"c" default:"blackjackd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Address to bind to (overrides config)"`
	Ledger   string `short:"l" help:"Path to the coins ledger file (overrides config)"`
	LogLevel string `help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("blackjackd"),
		kong.Description("Coin-wagering blackjack server"))

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Ledger != "" {
		cfg.Ledger.Path = CLI.Ledger
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if level, err := log.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	coins, err := ledger.Open(ledger.NewFileStore(cfg.Ledger.Path), logger)
	if err != nil {
		logger.Error("Failed to open ledger", "path", cfg.Ledger.Path, "error", err)
		kctx.Exit(1)
	}

	registry := table.NewRegistry(coins, logger,
		table.WithTimeout(cfg.Game.SessionTimeout()))
	service := server.NewService(registry, coins, cfg.Game, logger)
	srv := server.NewServer(cfg.Server.Address, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		kctx.Exit(1)
	}
	logger.Info("Shutdown complete")
}
