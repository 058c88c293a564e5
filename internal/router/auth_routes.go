// Package router 提供 HTTP 路由注册
// 本文件定义认证相关的路由
package router

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/handler"
)

// RegisterAuthRoutes 注册认证相关路由
// 注册、登录、Token 刷新均为公开接口
func RegisterAuthRoutes(r *gin.Engine, h *handler.Handlers) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.RefreshToken)
	}
}
