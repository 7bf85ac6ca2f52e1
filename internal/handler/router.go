package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskb/campuskb/internal/middleware"
)

type RouterDeps struct {
	Chat           *ChatHandler
	Sync           *SyncHandler
	RefreshLimiter time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RequestID())
	api.POST("/chat", deps.Chat.Chat)
	api.POST("/refresh", middleware.RateLimit(deps.RefreshLimiter), deps.Sync.Refresh)
	api.GET("/documents", deps.Sync.Documents)
}
