// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/gateway/websocket"
	"chatsy/internal/handler"
)

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用，按模块分别注册各个路由组
func RegisterRoutes(r *gin.Engine, h *handler.Handlers, gw *websocket.Gateway) {
	RegisterAuthRoutes(r, h)         // 认证路由
	RegisterProfileRoutes(r, h)      // 用户资料路由
	RegisterConversationRoutes(r, h) // 会话路由
	RegisterMessageRoutes(r, h)      // 消息路由
	RegisterAIRoutes(r, h)           // AI 助手路由
	RegisterWebSocketRoutes(r, gw)   // WebSocket 路由
}
