package router

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/handler"
	"chatsy/internal/infrastructure/middleware"
)

// RegisterAIRoutes 注册 AI 助手相关路由
func RegisterAIRoutes(r *gin.Engine, h *handler.Handlers) {
	aiGroup := r.Group("/ai")
	aiGroup.Use(middleware.JWTAuth())
	{
		aiGroup.POST("/send", h.AI.Send)
		aiGroup.POST("/summarize", h.AI.Summarize)
		aiGroup.GET("/history", h.AI.History)
		aiGroup.POST("/clear", h.AI.Clear)
	}
}
