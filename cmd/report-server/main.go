package main

import (
	"context"
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

	"github.com/nbslab/screening-reports/internal/config"
	"github.com/nbslab/screening-reports/internal/domain/samples"
	"github.com/nbslab/screening-reports/internal/domain/unsat"
	"github.com/nbslab/screening-reports/internal/platform/analytics"
	"github.com/nbslab/screening-reports/internal/platform/auth"
	"github.com/nbslab/screening-reports/internal/platform/db"
	"github.com/nbslab/screening-reports/internal/platform/httpapi"
	"github.com/nbslab/screening-reports/internal/platform/middleware"
	"github.com/nbslab/screening-reports/internal/platform/reporting"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "report-server",
		Short: "Newborn screening report API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the report API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// checkCmd pings both partitions and exits non-zero when either is down.
// Used by deploy scripts before cutting traffic over.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify connectivity to the archive and master stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			parts, err := db.NewPartitions(ctx, cfg.ArchiveDatabaseURL, cfg.MasterDatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer parts.Close()

			if err := parts.Ping(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			fmt.Println("archive and master stores reachable")
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Databases
	ctx := context.Background()
	parts, err := db.NewPartitions(ctx, cfg.ArchiveDatabaseURL, cfg.MasterDatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to partition stores")
	}
	defer parts.Close()
	logger.Info().Msg("connected to archive and master stores")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpapi.ErrorHandler(logger, cfg.IsDev())

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	usage := analytics.NewUsageTracker()
	e.Use(analytics.UsageMiddleware(usage))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	// Health check
	e.GET("/health", db.HealthHandler(parts))

	// API group: rate limited, with a per-request deadline so a report
	// stuck behind pool exhaustion cannot hold the client forever.
	api := e.Group("/api")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.RequestTimeoutSeconds > 0 {
		api.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))
	}

	// Report domains
	unsatHandler := unsat.NewHandler(unsat.NewService(unsat.NewRepoPG(parts)))
	unsatHandler.RegisterRoutes(api)

	samplesHandler := samples.NewHandler(samples.NewService(samples.NewRepoPG(parts)))
	samplesHandler.RegisterRoutes(api)

	// Operator endpoints
	admin := api.Group("/admin", auth.RequireRole("admin"))
	analytics.NewUsageHandler(usage).RegisterRoutes(admin)

	reporting.NewHandler(parts).RegisterRoutes(api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
