package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/mcptools"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var seedPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			appLogger, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			appLogger.Info("Server configuration loaded",
				"port", cfg.Server.Port,
				"log_level", cfg.Server.LogLevel,
				"database_driver", cfg.Database.Driver)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, appLogger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			if seedPath != "" {
				if err := app.seed(ctx, seedPath); err != nil {
					return err
				}
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML file of tasks to create before serving")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Long: `Serve the MCP tools over stdin/stdout for AI assistants. Logs go to
stderr so stdout carries only protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			appLogger, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, appLogger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			go app.runRefresher(ctx)

			mcpServer := mcptools.NewServer(cfg.MCP.Name, cfg.MCP.Version, app.taskService, appLogger)
			stdio := server.NewStdioServer(mcpServer)
			stdio.SetErrorLogger(stdlog.New(cmd.ErrOrStderr(), "mcp: ", stdlog.LstdFlags))

			appLogger.Info("MCP server listening on stdio", "name", cfg.MCP.Name, "version", cfg.MCP.Version)
			err = stdio.Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server failed: %w", err)
			}
			return nil
		},
	}
}
