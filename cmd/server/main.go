package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/subwallet/dapp-authorization-api/internal/config"
	"github.com/subwallet/dapp-authorization-api/internal/dao"
	"github.com/subwallet/dapp-authorization-api/internal/database"
	extensionclient "github.com/subwallet/dapp-authorization-api/internal/extension-client"
	"github.com/subwallet/dapp-authorization-api/internal/router"
	"github.com/subwallet/dapp-authorization-api/internal/service"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Set Gin to release mode by default (can be overridden by GIN_MODE env var)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting dApp Authorization API Server...")

	// CONFIG_PATH overrides the ./configs search
	configPath := os.Getenv("CONFIG_PATH")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.WithFields(logrus.Fields{
		"config_path": configPath,
		"log_level":   logger.GetLevel().String(),
	}).Info("Configuration loaded successfully")

	db, err := database.Initialize(&cfg.Database.Wallet, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}

	logger.Info("Database connection established successfully")

	keyValueDAO := dao.NewKeyValueDAO(db)
	accountDAO := dao.NewAccountDAO(db)
	chainDAO := dao.NewChainDAO(db)

	extensionClient := extensionclient.NewExtensionClient(&cfg.Extension, logger)
	defer extensionClient.Close()
	logger.WithField("enabled", extensionClient.IsExtensionEnabled()).Info("Extension client initialized")

	authorizationService := service.NewAuthorizationService(
		keyValueDAO,
		accountDAO,
		chainDAO,
		extensionClient,
		cfg.Authorization,
		logger,
	)

	if err := authorizationService.Init(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to initialize authorization service")
	}

	ginRouter := router.SetupRouter(authorizationService, cfg.CORS, logger)

	serverAddr := cfg.Server.GetServerAddress()
	// WriteTimeout stays 0 by default: authorization requests are held open until the user answers
	server := &http.Server{
		Addr:           serverAddr,
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.WithField("addr", serverAddr).Info("Starting HTTP server...")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Dispose first so held-open requests and event streams finish before Shutdown waits on them
	authorizationService.Dispose()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	db.LogStats()
	logger.Info("Server exited gracefully")
}
