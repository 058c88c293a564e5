package router

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/handler"
	"chatsy/internal/infrastructure/middleware"
)

// RegisterMessageRoutes 注册消息相关路由
func RegisterMessageRoutes(r *gin.Engine, h *handler.Handlers) {
	messageGroup := r.Group("/message")
	messageGroup.Use(middleware.JWTAuth())
	{
		messageGroup.GET("/list", h.Message.GetMessageList)
		messageGroup.POST("/send", h.Message.Send)
		messageGroup.POST("/markViewed", h.Message.MarkViewed)
	}
}
