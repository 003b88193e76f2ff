package api

import (
	"net/http"

	"github.com/sauravkrkushwaha/BoloSign/internal/api/handlers"
	"github.com/sauravkrkushwaha/BoloSign/internal/api/middleware"
	"github.com/sauravkrkushwaha/BoloSign/internal/config"
	"github.com/sauravkrkushwaha/BoloSign/internal/services"
	"github.com/sauravkrkushwaha/BoloSign/internal/storage"
	"github.com/sauravkrkushwaha/BoloSign/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	engine        *gin.Engine
	logger        *zap.Logger
	registry      *prometheus.Registry
	docHandler    *handlers.DocumentHandler
	reqMiddleware *middleware.RequestMiddleware
	uploadDir     string
}

func NewRouter(
	cfg *config.Configuration,
	logger *zap.Logger,
	registry *prometheus.Registry,
	collector *metrics.Collector,
	signingService *services.SigningService,
	auditService *services.AuditService,
	store *storage.Store,
	db *gorm.DB,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())

	docHandler := handlers.NewDocumentHandler(
		signingService,
		auditService,
		store,
		db,
		logger,
		collector,
		cfg.Storage.MaxUploadBytes,
	)

	return &Router{
		engine:        engine,
		logger:        logger,
		registry:      registry,
		docHandler:    docHandler,
		reqMiddleware: reqMiddleware,
		uploadDir:     store.Root(),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "bolosign"})
	})

	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))

	r.engine.Static("/uploads", r.uploadDir)

	apiGroup := r.engine.Group("/api")
	{
		apiGroup.POST("/sign-pdf", r.docHandler.SignPDF)
		apiGroup.POST("/upload-pdf", r.docHandler.UploadPDF)
		apiGroup.GET("/audit/:documentId", r.docHandler.GetAudit)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
