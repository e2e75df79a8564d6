package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter configures and returns the Gin router.
func SetupRouter(handler *SessionHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/session", handler.UnlockHandler)
		v1.GET("/session", handler.SnapshotHandler)
		v1.DELETE("/session", handler.ResetHandler)
		v1.GET("/session/progress", handler.ProgressHandler)
		v1.PUT("/session/network", handler.UpdateNetworkHandler)

		v1.GET("/balances", handler.BalancesHandler)
		v1.GET("/history", handler.HistoryHandler)

		v1.POST("/transfer/estimate", handler.EstimateHandler)
		v1.POST("/transfer", handler.TransferHandler)

		v1.GET("/link", handler.LinkHandler)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router
}
