package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/handlers"
	"shield-backend/internal/interfaces"
	"shield-backend/internal/middleware"
)

// SetupTransferRoutes registers the /api routes
func SetupTransferRoutes(r *gin.Engine, transfers interfaces.TransferServiceInterface, auth *middleware.AuthMiddleware, logger *logrus.Logger) {
	h := handlers.NewTransferHandler(transfers, logger)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheckHandler)

		secure := api.Group("")
		secure.Use(auth.RequireAuth())
		{
			secure.GET("/balance", h.GetBalanceHandler)
			secure.GET("/withdraw/max", h.GetMaxWithdrawalHandler)

			transfersGroup := secure.Group("/transfers")
			{
				transfersGroup.POST("", h.CreateTransferHandler)
				transfersGroup.GET("/recoverable", h.ListRecoverableHandler)
				transfersGroup.GET("/:id", h.GetTransferHandler)
				transfersGroup.POST("/:id/resume", h.ResumeTransferHandler)
			}
		}
	}
}
