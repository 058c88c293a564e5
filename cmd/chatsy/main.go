package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"chatsy/internal/config"
	dao "chatsy/internal/dao/mysql"
	myredis "chatsy/internal/dao/redis"
	"chatsy/internal/feed"
	"chatsy/internal/gateway/websocket"
	"chatsy/internal/handler"
	"chatsy/internal/https_server"
	"chatsy/internal/infrastructure/logger"
	"chatsy/internal/service"
	"chatsy/internal/storage"
	"chatsy/pkg/util/jwt"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.AppMode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	zap.L().Info("日志初始化成功")

	// 3. 初始化数据库
	repos := dao.Init()
	zap.L().Info("数据库初始化成功")

	// 4. 初始化 Redis 和缓存工作池
	myredis.Init()
	myredis.InitCacheWorker(4, 256)
	zap.L().Info("Redis 初始化成功")

	// 5. 初始化 JWT
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)
	zap.L().Info("JWT 初始化成功")

	// 6. 初始化参数校验翻译器
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("翻译器初始化失败", zap.Error(err))
	}

	// 7. 初始化变更推送，按配置选择进程内通道或 Kafka
	var broker feed.Broker
	if conf.FeedConfig.MessageMode == "kafka" {
		broker = feed.NewKafkaBroker()
	} else {
		broker = feed.NewChannelBroker()
	}
	go broker.Start()
	zap.L().Info("变更推送初始化成功", zap.String("mode", conf.FeedConfig.MessageMode))

	// 8. 初始化对象存储
	store := storage.NewLocalStorage(
		conf.StorageConfig.AttachmentPath,
		conf.StorageConfig.AvatarPath,
		conf.StorageConfig.PublicBaseURL,
	)

	// 9. 依赖注入：Service -> Handler -> 网关/路由
	services := service.NewServices(repos, store, broker, conf.AIConfig)
	handlers := handler.NewHandlers(services)
	gw := websocket.NewGateway(services, broker)

	// 10. 初始化 HTTP 服务器并启动
	engine := https_server.Init(handlers, gw)
	go func() {
		addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
		if err := engine.Run(addr); err != nil {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()
	zap.L().Info("服务器启动成功")

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("关闭服务器...")
	broker.Close()
	zap.L().Info("服务器已关闭")
}
