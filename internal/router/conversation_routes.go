package router

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/handler"
	"chatsy/internal/infrastructure/middleware"
)

// RegisterConversationRoutes 注册会话相关路由
func RegisterConversationRoutes(r *gin.Engine, h *handler.Handlers) {
	convGroup := r.Group("/conversation")
	convGroup.Use(middleware.JWTAuth())
	{
		convGroup.GET("/list", h.Conversation.List)
		convGroup.POST("/openDirect", h.Conversation.OpenDirect)
		convGroup.POST("/summarize", h.Conversation.Summarize)
	}
}
