package router

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/handler"
	"chatsy/internal/infrastructure/middleware"
)

// RegisterProfileRoutes 注册用户资料相关路由
func RegisterProfileRoutes(r *gin.Engine, h *handler.Handlers) {
	profileGroup := r.Group("/profile")
	profileGroup.Use(middleware.JWTAuth())
	{
		profileGroup.GET("/me", h.Profile.GetMe)
		profileGroup.POST("/update", h.Profile.UpdateProfile)
		profileGroup.GET("/search", h.Profile.SearchUsers)
		profileGroup.POST("/uploadAvatar", h.Profile.UploadAvatar)
	}
}
