// Package redis 提供 Redis 缓存操作的封装
// 本文件包含键的删除操作
package redis

import (
	"context"

	"chatsy/pkg/errorx"
)

// DelKeyIfExists 删除键（如果存在）
func DelKeyIfExists(ctx context.Context, key string) error {
	if redisClient == nil {
		return errNotInited
	}
	exists, err := redisClient.Exists(ctx, key).Result()
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis exists key %s", key)
	}
	if exists == 1 {
		if err := redisClient.Unlink(ctx, key).Err(); err != nil {
			return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink key %s", key)
		}
	}
	// 键不存在同样返回成功
	return nil
}
