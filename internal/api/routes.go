package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/regions", handler.GetRegions)
		api.GET("/schools", handler.GetSchools)
		api.POST("/properties/search", handler.Search)
		api.GET("/stats", handler.GetRegionalStats)
		api.POST("/stats/invalidate", handler.InvalidateStatsCache)
	}
}
