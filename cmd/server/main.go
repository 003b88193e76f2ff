package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sauravkrkushwaha/BoloSign/internal/api"
	"github.com/sauravkrkushwaha/BoloSign/internal/config"
	"github.com/sauravkrkushwaha/BoloSign/internal/db"
	"github.com/sauravkrkushwaha/BoloSign/internal/services"
	"github.com/sauravkrkushwaha/BoloSign/internal/storage"
	"github.com/sauravkrkushwaha/BoloSign/pkg/logger"
	"github.com/sauravkrkushwaha/BoloSign/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.InitializeDefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	store, err := storage.NewStore(cfg.Storage.UploadDir)
	if err != nil {
		zapLogger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	var resolver services.SourceResolver = services.NewDefaultSourceResolver(store, cfg.Signing.DefaultSourcePath)
	if cfg.Signing.StrictSources {
		resolver = services.NewStrictSourceResolver(store)
	}
	signingService := services.NewSigningService(database, store, resolver, zapLogger, collector)
	auditService := services.NewAuditService(database, zapLogger)

	router := api.NewRouter(cfg, zapLogger, registry, collector, signingService, auditService, store, database)
	router.SetupRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	go func() {
		if err := router.Run(":" + port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	sqlDB, err := database.DB()
	if err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}
