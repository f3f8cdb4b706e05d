package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naumangoraya/sos/internal/config"
	"github.com/naumangoraya/sos/internal/db"
	"github.com/naumangoraya/sos/internal/logger"
	"github.com/naumangoraya/sos/internal/policy"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sos",
	Short: "SOS back-office API server",
	Long: `sos serves the back-office REST API for customers, suppliers,
items, stores and sale/purchase invoices.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := logger.Setup(c.Log.Level, c.Log.Format, nil); err != nil {
			return fmt.Errorf("setup logger: %w", err)
		}
		cfg = c
		return nil
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Connect(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer closeDB(conn)
		if err := db.Migrate(conn, cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.WithComponent("migrate").Info().Msg("migrations completed successfully")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed default users and sample data, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Connect(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer closeDB(conn)
		if err := db.Migrate(conn, cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if err := db.Seed(cmd.Context(), conn); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		logger.WithComponent("seed").Info().Msg("seeding completed successfully")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"),
		"optional YAML config file (env CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.WithComponent("cmd").Error().Err(err).Msg("command execution failed")
		stop()
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")
	ctx := cmd.Context()

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	if err := db.Migrate(conn, cfg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if cfg.App.Seed {
		if err := db.Seed(ctx, conn); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
	}

	routerCfg := policy.NewRouterConfig(conn, cfg.Auth)
	app := NewApp(conn, routerCfg, cfg.Metrics.Enabled)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).
			Bool("metrics", cfg.Metrics.Enabled).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}

func closeDB(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
