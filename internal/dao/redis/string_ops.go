// Package redis 提供 Redis 缓存操作的封装
// 本文件包含字符串读写操作
package redis

import (
	"context"
	"time"

	"chatsy/pkg/errorx"

	"github.com/redis/go-redis/v9"
)

// GetKeyNilIsErr 读取键值，键不存在时返回 redis.Nil
// 调用方用 errors.Is(err, redis.Nil) 区分"未命中"和真实错误
func GetKeyNilIsErr(ctx context.Context, key string) (string, error) {
	if redisClient == nil {
		return "", errNotInited
	}
	val, err := redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", redis.Nil
	}
	if err != nil {
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return val, nil
}

// SetKeyEx 写入键值并设置过期时间
func SetKeyEx(ctx context.Context, key string, value string, timeout time.Duration) error {
	if redisClient == nil {
		return errNotInited
	}
	if err := redisClient.Set(ctx, key, value, timeout).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}
