package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/skintriage/skintriage/internal/config"
	"github.com/skintriage/skintriage/internal/domain/history"
	"github.com/skintriage/skintriage/internal/domain/triage"
	"github.com/skintriage/skintriage/internal/platform/backend"
	"github.com/skintriage/skintriage/internal/platform/middleware"
	"github.com/skintriage/skintriage/internal/platform/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage-console",
		Short: "Skin lesion triage console API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(backendCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the triage console API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func backendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Inspect the inference backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Probe the backend's health and info endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := zerolog.Nop()
			core := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout(), logger)
			client := backend.NewHistoryClient(core)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.BackendTimeout())
			defer cancel()

			status, err := client.Health(ctx)
			if err != nil {
				return fmt.Errorf("backend health check failed: %w", err)
			}
			fmt.Printf("Backend %s is reachable.\n", cfg.BackendURL)
			for k, v := range status {
				fmt.Printf("  %s: %s\n", k, v)
			}

			info, err := client.Info(ctx)
			if err == nil {
				if name, ok := info["name"].(string); ok {
					fmt.Printf("  name: %s\n", name)
				}
				if version, ok := info["version"].(string); ok {
					fmt.Printf("  version: %s\n", version)
				}
			}
			return nil
		},
	})

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Session signing key. Development mode runs on a throwaway key, so
	// workflow sessions do not survive a restart.
	signingKey := cfg.SigningKey()
	if len(signingKey) == 0 {
		signingKey = make([]byte, 32)
		if _, err := crypto_rand.Read(signingKey); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate session signing key")
		}
		logger.Warn().Msg("SESSION_SIGNING_KEY not set; generated a throwaway key")
	}

	// Backend clients share one HTTP core: one base URL, one timeout.
	core := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout(), logger)
	predictionClient := backend.NewPredictionClient(core)
	registryClient := backend.NewRegistryClient(core)
	historyClient := backend.NewHistoryClient(core)

	// Workflow state lives in memory, swept on idle TTL.
	store := triage.NewInMemorySessionStore()
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case now := <-ticker.C:
				if removed := store.Sweep(now, cfg.SessionTTL()); removed > 0 {
					logger.Info().Int("removed", removed).Msg("swept idle workflow sessions")
				}
			}
		}
	}()

	tokens := session.NewManager(signingKey, cfg.SessionTTL())
	triageSvc := triage.NewService(registryClient, predictionClient, store, logger)
	historySvc := history.NewService(historyClient, registryClient, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")
	triage.NewHandler(triageSvc, tokens).RegisterRoutes(apiV1)
	history.NewHandler(historySvc).RegisterRoutes(apiV1)

	// Liveness of the console itself, independent of the backend.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Graceful shutdown
	go func() {
		logger.Info().Str("port", cfg.Port).Str("backend", cfg.BackendURL).Msg("triage console listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
