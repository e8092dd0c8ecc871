package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cortex "github.com/cortex-ai/cortex"
	"github.com/cortex-ai/cortex/internal/config"
	"github.com/cortex-ai/cortex/notify"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Cortex server",
	Long:  "Start the Cortex API server that manages containers and the dashboard chat.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	b := cortex.NewBuilder().WithConfig(cortex.Config{
		ServerAddr:   cfg.ServerAddr,
		DataDir:      cfg.DataDir,
		DatabasePath: cfg.DatabasePath,
		Operator:     cfg.Operator,
		CommandDelay: cfg.CommandDelay,
		TrackedRepos: cfg.TrackedRepos,
		GitHubToken:  cfg.GitHubToken,
	})
	if cfg.SlackEnabled() {
		b.WithNotifier(notify.NewSlack(cfg.SlackBotToken, cfg.SlackChannel))
	}

	app, err := b.Build()
	if err != nil {
		return fmt.Errorf("building application: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	return app.Start(ctx)
}
