package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solbridge/bridge_service/internal/api/routes"
	"github.com/solbridge/bridge_service/internal/domain/services/reconciliation"
	"github.com/solbridge/bridge_service/internal/infrastructure/config"
	"github.com/solbridge/bridge_service/internal/infrastructure/database"
	"github.com/solbridge/bridge_service/internal/infrastructure/di"
	"github.com/solbridge/bridge_service/pkg/graceful"
	"github.com/solbridge/bridge_service/pkg/logger"
	"github.com/solbridge/bridge_service/pkg/metrics"
	"github.com/solbridge/bridge_service/pkg/tracing"
)

// @title Bridge Service API
// @version 1.0
// @description Cross-chain token bridge control plane: token registry, liquidity accounting and message settlement.

// @contact.name API Support
// @contact.email support@solbridge.io

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// schedulerShutdowner adapts the reconciliation scheduler to the shutdown
// manager contract.
type schedulerShutdowner struct {
	scheduler *reconciliation.Scheduler
}

func (s schedulerShutdowner) Shutdown(time.Duration) error {
	return s.scheduler.Stop()
}

type prunerShutdowner struct {
	pruner interface{ Stop() error }
}

func (p prunerShutdowner) Shutdown(time.Duration) error {
	return p.pruner.Stop()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)

	// Initialize OpenTelemetry tracing
	tracingShutdown, err := tracing.InitTracer(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		CollectorURL: cfg.Tracing.OTLPEndpoint,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRatio,
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}
	defer tracingShutdown(context.Background())

	// Initialize database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	// Run migrations
	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, log, db)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}
	defer container.Close()

	// Initialize router with DI container
	router := routes.SetupRoutes(container)

	// Create server
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	shutdown := graceful.NewShutdownManager(server, db, log)

	// Start reconciliation scheduler
	if cfg.Reconciliation.Enabled {
		scheduler := reconciliation.NewScheduler(
			container.ReconciliationService,
			log,
			time.Duration(cfg.Reconciliation.IntervalMinutes)*time.Minute,
		)
		if err := scheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", "error", err)
		}
		shutdown.Register(schedulerShutdowner{scheduler: scheduler})
		log.Info("Reconciliation scheduler started",
			"interval_minutes", cfg.Reconciliation.IntervalMinutes)
	} else {
		log.Info("Reconciliation scheduler disabled in configuration")
	}

	// Start message retention pruner
	if cfg.Retention.Enabled {
		if err := container.Pruner.Start(cfg.Retention.CronSpec); err != nil {
			log.Fatal("Failed to start message pruner", "error", err)
		}
		shutdown.Register(prunerShutdowner{pruner: container.Pruner})
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"read_timeout", cfg.Server.ReadTimeout,
			"write_timeout", cfg.Server.WriteTimeout,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Database connection metrics
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			stats := db.Stats()
			metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
			metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
			metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
		}
	}()

	shutdown.WaitForShutdown()
}
