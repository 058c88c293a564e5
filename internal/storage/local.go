package storage

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"chatsy/pkg/constants"
	"chatsy/pkg/errorx"
)

// LocalStorage 本地磁盘对象存储
// 每个桶映射到一个本地目录，通过静态路由对外提供公开 URL
type LocalStorage struct {
	roots   map[string]string // bucket -> 本地目录
	baseURL string            // 公开 URL 前缀，不含末尾斜杠
}

// NewLocalStorage 创建本地存储
func NewLocalStorage(attachmentPath, avatarPath, baseURL string) *LocalStorage {
	return &LocalStorage{
		roots: map[string]string{
			constants.BucketChatAttachments: attachmentPath,
			constants.BucketAvatars:         avatarPath,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload 写入对象并返回公开 URL
// allowedMimes 非空时读取前 512 字节做 Magic Bytes 校验
func (s *LocalStorage) Upload(bucket, objectName string, src io.ReadSeeker, allowedMimes ...string) (string, error) {
	root, ok := s.roots[bucket]
	if !ok {
		return "", errorx.Newf(errorx.CodeUploadFailed, "unknown bucket: %s", bucket)
	}
	if !validObjectName(objectName) {
		return "", errorx.Newf(errorx.CodeInvalidParam, "invalid object name: %s", objectName)
	}

	// 1. MIME 校验
	if len(allowedMimes) > 0 {
		buffer := make([]byte, 512)
		if _, err := src.Read(buffer); err != nil && err != io.EOF {
			return "", errorx.Wrap(err, errorx.CodeUploadFailed, "读取文件头失败")
		}
		contentType := http.DetectContentType(buffer)
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return "", errorx.Wrap(err, errorx.CodeUploadFailed, "重置文件指针失败")
		}

		isAllowed := false
		for _, mime := range allowedMimes {
			if strings.HasPrefix(contentType, mime) {
				isAllowed = true
				break
			}
		}
		if !isAllowed {
			return "", errorx.Newf(errorx.CodeInvalidParam, "invalid file type: %s", contentType)
		}
	}

	// 2. 写入文件
	dst := filepath.Join(root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "创建存储目录失败")
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "创建存储文件失败")
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		// 写入失败时清掉半截文件
		_ = os.Remove(dst)
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "写入存储文件失败")
	}

	return s.baseURL + "/" + bucket + "/" + objectName, nil
}

// Delete 按对象路径删除
// 对象不存在不算错误（删除是幂等的）
func (s *LocalStorage) Delete(bucket, objectName string) error {
	root, ok := s.roots[bucket]
	if !ok {
		return errorx.Newf(errorx.CodeStorageError, "unknown bucket: %s", bucket)
	}
	if !validObjectName(objectName) {
		return errorx.Newf(errorx.CodeInvalidParam, "invalid object name: %s", objectName)
	}
	err := os.Remove(filepath.Join(root, filepath.FromSlash(objectName)))
	if err != nil && !os.IsNotExist(err) {
		return errorx.Wrapf(err, errorx.CodeStorageError, "删除存储对象 %s/%s", bucket, objectName)
	}
	return nil
}

// validObjectName 拒绝路径穿越
func validObjectName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
