package constants

const (
	CHANNEL_SIZE      = 100      // 通道大小
	FILE_MAX_SIZE     = 50 << 20 // 上传文件最大大小（字节）
	REDIS_TIMEOUT     = 1        // redis 缓存有效期（分钟）
	AI_CONTEXT_TURNS  = 10       // AI 对话上下文保留的最近轮数
	USER_SEARCH_LIMIT = 10       // 用户搜索返回上限
)

// 对象存储桶名（兼作公开 URL 的路径段）
const (
	BucketChatAttachments = "chat-attachments"
	BucketAvatars         = "avatars"
)
