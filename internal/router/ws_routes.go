package router

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/gateway/websocket"
)

// RegisterWebSocketRoutes 注册 WebSocket 路由
// 身份校验在网关内完成（浏览器端 WebSocket 无法带 Header，token 走查询参数）
func RegisterWebSocketRoutes(r *gin.Engine, gw *websocket.Gateway) {
	r.GET("/ws", gw.Handle)
}
