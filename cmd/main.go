package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"comanda/internal/api"
	"comanda/internal/auth"
	"comanda/internal/catalog"
	"comanda/internal/config"
	"comanda/internal/database"
	"comanda/internal/logging"
	"comanda/internal/metrics"
	"comanda/internal/models"
	"comanda/internal/monitoring"
	"comanda/internal/orders"
	"comanda/internal/realtime"
	"comanda/internal/staff"
	"comanda/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envFile    = flag.String("env", ".env", "Path to an optional .env file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := initializeDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	collector := metrics.NewCollector()
	hub := realtime.NewHub(logger)
	if len(cfg.Server.AllowedOrigins) > 0 {
		hub.SetCheckOrigin(realtime.AllowOrigins(cfg.Server.AllowedOrigins))
	}
	defer hub.Close()

	server := api.New(api.Services{
		DB:      db,
		Auth:    auth.NewService(db, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, logger, collector),
		Orders:  orders.NewService(db, logger, hub, collector),
		Catalog: catalog.NewService(db),
		Staff:   staff.NewService(db, logger),
		Stats:   stats.NewService(db),
		Hub:     hub,
		Metrics: collector,
		Monitor: monitoring.NewMonitor(),
		Logger:  logger,
	}, api.Options{
		SessionTTL:     cfg.Auth.SessionTTL,
		SecureCookies:  cfg.Auth.SecureCookies,
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		LoginBurst:     cfg.Auth.LoginBurst,
	})

	// Start metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsRouter(collector),
	}
	go func() {
		logger.WithField("port", cfg.Server.MetricsPort).Info("Starting metrics server")
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.WithError(err).Error("Metrics server error")
		}
	}()

	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("API server shutdown error")
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Metrics server shutdown error")
		}
	}()

	logger.WithField("port", cfg.Server.Port).Info("Starting API server")
	if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.WithError(err).Fatal("API server error")
	}
	<-done
}

func initializeDB(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	if !cfg.Seed.Enabled {
		return db, nil
	}

	var admin *models.User
	if cfg.Auth.AdminEmail != "" {
		admin, err = auth.AdminAccount(cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := database.Seed(db, admin); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}
	logger.Info("Reference data seeded")
	return db, nil
}

func metricsRouter(collector *metrics.Collector) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(collector.Handler()))
	return router
}
