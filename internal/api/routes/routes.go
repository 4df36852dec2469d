// Package routes assembles the HTTP surface.
package routes

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/solbridge/bridge_service/internal/api/handlers"
	"github.com/solbridge/bridge_service/internal/api/middleware"
	"github.com/solbridge/bridge_service/internal/infrastructure/di"
	"github.com/solbridge/bridge_service/pkg/idempotency"
)

// RegisterValidators installs the address format validators used by request
// binding tags.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("base58", func(fl validator.FieldLevel) bool {
			_, err := solana.PublicKeyFromBase58(fl.Field().String())
			return err == nil
		})
		v.RegisterValidation("evmaddr", func(fl validator.FieldLevel) bool {
			return common.IsHexAddress(fl.Field().String())
		})
	}
}

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	RegisterValidators()

	router := gin.New()

	// Global middleware - order matters for security
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	healthHandler := handlers.NewHealthHandler(container.DB)
	authHandler := handlers.NewAuthHandler(container.Config, container.Logger)
	adminHandler := handlers.NewAdminHandler(container.BridgeService, container.Logger)
	transferHandler := handlers.NewTransferHandler(container.TransferService, container.Logger)
	eventsHandler := handlers.NewEventsHandler(
		container.EventsService, container.Config.Bridge.EventPageSize, container.Logger)

	// Health checks (no auth required)
	router.GET("/health", healthHandler.Live)
	router.GET("/live", healthHandler.Live)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation (development only)
	if container.Config.Environment != "production" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := router.Group("/api/v1")
	v1.POST("/auth/token", authHandler.Token)

	// Public read surface
	v1.GET("/tokens", adminHandler.ListTokens)
	v1.GET("/tokens/:token_id", adminHandler.GetToken)
	v1.GET("/events", eventsHandler.List)

	// Value movement. Idempotency keys let retried submissions replay the
	// original response instead of double-spending.
	transfers := v1.Group("")
	transfers.Use(idempotency.Middleware(container.IdempotencyRepo, container.Logger.Zap()))
	transfers.POST("/liquidity", transferHandler.AddLiquidity)
	transfers.POST("/send", transferHandler.Send)

	// Owner surface
	admin := v1.Group("/admin")
	admin.Use(middleware.Authentication(container.Config))
	admin.Use(middleware.OwnerOnly())
	admin.Use(idempotency.Middleware(container.IdempotencyRepo, container.Logger.Zap()))
	admin.POST("/initialize", adminHandler.Initialize)
	admin.GET("/config", adminHandler.GetConfig)
	admin.PUT("/protocol-fee", adminHandler.SetProtocolFee)
	admin.POST("/tokens", adminHandler.AddToken)
	admin.DELETE("/tokens", adminHandler.RemoveToken)
	admin.PUT("/tokens/:token_id/balance", adminHandler.UpdateTokenBalance)

	// Withdrawals take a step-up one-time code on top of the owner token.
	withdrawals := admin.Group("")
	withdrawals.Use(middleware.RequireTOTP(container.Config))
	withdrawals.POST("/withdraw", adminHandler.Withdraw)
	withdrawals.POST("/withdraw-token", adminHandler.WithdrawToken)

	// Inbound messages are relayed by the operator under the owner token.
	messages := v1.Group("")
	messages.Use(middleware.Authentication(container.Config))
	messages.Use(middleware.OwnerOnly())
	messages.POST("/message-receive", transferHandler.MessageReceive)

	return router
}
