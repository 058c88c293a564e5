// Package https_server 提供 HTTP 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件、静态资源和路由
package https_server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chatsy/internal/config"
	"chatsy/internal/gateway/websocket"
	"chatsy/internal/handler"
	"chatsy/internal/infrastructure/logger"
	"chatsy/internal/router"
	"chatsy/pkg/constants"
)

// Init 初始化 HTTP 服务器并返回 Gin 引擎实例
// 配置顺序：
//  1. 创建空白 Gin 引擎（不使用 gin.Default()，中间件完全自定义）
//  2. 注册 Zap 日志和 Panic 恢复中间件
//  3. 配置 CORS 跨域规则
//  4. 映射静态资源目录（附件、头像）
//  5. 注册业务路由和 WebSocket 路由
func Init(handlers *handler.Handlers, gw *websocket.Gateway) *gin.Engine {
	engine := gin.New()

	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))
	// 直接对外提供 HTTPS 时启用重定向；由 Nginx 终结 SSL 时保持注释
	// engine.Use(middleware.TlsHandler(config.GetConfig().MainConfig.Host, config.GetConfig().MainConfig.Port))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// 静态资源映射，和对象存储的公开 URL 前缀对应
	conf := config.GetConfig()
	engine.Static("/static/"+constants.BucketChatAttachments, conf.StorageConfig.AttachmentPath)
	engine.Static("/static/"+constants.BucketAvatars, conf.StorageConfig.AvatarPath)

	router.RegisterRoutes(engine, handlers, gw)

	return engine
}
