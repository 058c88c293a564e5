// Package storage 提供附件/头像的对象存储抽象
// 上传返回公开 URL，删除按对象路径执行；URL 与对象路径可互相推导
package storage

import (
	"io"
	"strings"
)

// ObjectStorage 对象存储接口
// bucket 为逻辑桶名（chat-attachments / avatars），objectName 是桶内路径，
// 形如 "{conversationId}/{randomName}.{ext}"
type ObjectStorage interface {
	// Upload 写入对象并返回公开 URL
	// allowedMimes 非空时按文件头部的 Magic Bytes 校验 MIME 类型
	Upload(bucket, objectName string, src io.ReadSeeker, allowedMimes ...string) (string, error)
	// Delete 按对象路径删除
	Delete(bucket, objectName string) error
}

// PathFromURL 从公开 URL 反推桶内对象路径
// URL 形如 .../chat-attachments/{conversationId}/{file}，按 "/{bucket}/" 切分
func PathFromURL(url, bucket string) (string, bool) {
	parts := strings.SplitN(url, "/"+bucket+"/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Ext 提取文件扩展名（不含点），没有扩展名时返回 "bin"
func Ext(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "bin"
	}
	return strings.ToLower(filename[idx+1:])
}
