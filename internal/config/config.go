// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
// AI 服务的密钥只从环境变量读取（支持 .env 文件），不写入配置文件
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName string `toml:"appName"` // 应用名称，用于日志标识等
	AppMode string `toml:"appMode"` // 运行模式："dev" 或 "prod"，影响日志输出
	Host    string `toml:"host"`    // 服务器监听地址，如 "0.0.0.0"
	Port    int    `toml:"port"`    // 服务器监听端口，如 8000
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"` // 无密码留空
	Db       int    `toml:"db"`
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// FeedConfig 变更推送（change feed）配置
// messageMode 为 "channel" 时使用进程内通道广播，为 "kafka" 时走 Kafka
type FeedConfig struct {
	MessageMode string        `toml:"messageMode"` // "channel" 或 "kafka"
	HostPort    string        `toml:"hostPort"`    // Kafka 服务器地址，如 "localhost:9092"
	FeedTopic   string        `toml:"feedTopic"`   // 变更事件主题
	Partition   int           `toml:"partition"`   // 分区数
	Timeout     time.Duration `toml:"timeout"`     // 超时时间（秒）
}

// StorageConfig 对象存储配置
// 附件和头像都保存在本地磁盘，通过静态路由对外提供公开 URL
type StorageConfig struct {
	AttachmentPath string `toml:"attachmentPath"` // 聊天附件存储目录
	AvatarPath     string `toml:"avatarPath"`     // 头像存储目录
	PublicBaseURL  string `toml:"publicBaseURL"`  // 对外 URL 前缀，如 "http://localhost:8000/static"
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret             string `toml:"secret"`             // JWT 签名密钥，建议 32 字符以上
	AccessTokenExpiry  int    `toml:"accessTokenExpiry"`  // Access Token 有效期（分钟）
	RefreshTokenExpiry int    `toml:"refreshTokenExpiry"` // Refresh Token 有效期（小时）
}

// AIConfig AI 对话服务配置（Groq，OpenAI 兼容接口）
type AIConfig struct {
	BaseURL        string `toml:"baseURL"`        // 如 "https://api.groq.com/openai/v1"
	Model          string `toml:"model"`          // 如 "llama-3.1-8b-instant"
	TranscriptPath string `toml:"transcriptPath"` // 每用户对话记录的本地存储目录
	APIKey         string `toml:"-"`              // 仅来自环境变量 GROQ_API_KEY，缺失时 AI 功能报错但不影响其他功能
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig    `toml:"mainConfig"`
	MysqlConfig   `toml:"mysqlConfig"`
	RedisConfig   `toml:"redisConfig"`
	LogConfig     `toml:"logConfig"`
	FeedConfig    `toml:"feedConfig"`
	StorageConfig `toml:"storageConfig"`
	JWTConfig     `toml:"jwtConfig"`
	AIConfig      `toml:"aiConfig"`
}

// config 全局配置单例，延迟加载
var config *Config

// LoadConfig 从多个候选路径加载配置文件
// 按顺序尝试加载，找到第一个可用的配置文件即停止
func LoadConfig() error {
	// 候选配置文件路径（优先加载本地配置）
	paths := []string{
		"configs/config_local.toml",
		"configs/config.toml",
		"../../configs/config_local.toml",
		"../../configs/config.toml",
	}

	for _, path := range paths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			loadEnv()
			return nil
		}
	}

	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// loadEnv 读取环境变量中的敏感配置
// .env 文件不存在不算错误，环境变量直接设置同样生效
func loadEnv() {
	_ = godotenv.Load()
	config.AIConfig.APIKey = os.Getenv("GROQ_API_KEY")
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载配置文件
func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig() // 忽略加载错误，使用默认值
	}
	return config
}
