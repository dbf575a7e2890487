package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/pixstore/internal/config"
	pkgAuth "github.com/polkiloo/pixstore/internal/pkg/auth"
	"github.com/polkiloo/pixstore/internal/server/http/handlers"
	"github.com/polkiloo/pixstore/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(
	facade handlers.StoreFacade,
	guard *pkgAuth.AdminGuard,
	verifier *pkgAuth.SignatureVerifier,
	cfg *config.Config,
	logger *slog.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	paymentHandler := handlers.NewPaymentHandler(facade, facade, logger)
	webhookHandler := handlers.NewWebhookHandler(facade, verifier, logger)
	downloadHandler := handlers.NewDownloadHandler(facade, logger)
	adminHandler := handlers.NewAdminHandler(facade, logger)
	healthHandler := handlers.NewHealthHandler(facade, logger)

	engine.GET("/healthz", healthHandler.Check)

	payments := engine.Group("/payments")
	payments.POST("/criar-pagamento", paymentHandler.Create)
	payments.GET("/status-pagamento/:paymentId", paymentHandler.Status)
	payments.GET("/link-download/:paymentId", paymentHandler.Downloads)

	engine.POST("/webhook-mercadopago", webhookHandler.Receive)

	limiter := middleware.NewIPRateLimiter(cfg.RedeemRPS, cfg.RedeemBurst)
	engine.GET("/download-file", middleware.RateLimit(limiter), downloadHandler.Redeem)

	admin := engine.Group("/admin")
	admin.Use(middleware.AdminRequired(guard))
	admin.POST("/reconcile/:paymentId", adminHandler.Reconcile)
	admin.POST("/catalog/invalidate", adminHandler.InvalidateCatalog)

	return engine
}
