package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsy/pkg/constants"
	"chatsy/pkg/errorx"
)

// 最小合法 PNG 文件头，让 MIME 探测命中 image/png
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	return NewLocalStorage(
		filepath.Join(t.TempDir(), "chat-attachments"),
		filepath.Join(t.TempDir(), "avatars"),
		"http://localhost:8000/static/",
	)
}

func TestUploadReturnsPublicURL(t *testing.T) {
	s := newTestStorage(t)

	url, err := s.Upload(constants.BucketChatAttachments, "c1/file.bin", bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/static/chat-attachments/c1/file.bin", url)

	data, err := os.ReadFile(filepath.Join(s.roots[constants.BucketChatAttachments], "c1", "file.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestUploadRejectsUnknownBucket(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.Upload("no-such-bucket", "x.bin", bytes.NewReader([]byte("x")))
	require.Error(t, err)
}

func TestUploadRejectsPathTraversal(t *testing.T) {
	s := newTestStorage(t)
	for _, name := range []string{"../escape.bin", "/abs.bin", "a//b.bin", "a/./b.bin", ""} {
		_, err := s.Upload(constants.BucketChatAttachments, name, bytes.NewReader([]byte("x")))
		assert.Error(t, err, "object name %q must be rejected", name)
	}
}

func TestUploadEnforcesMimeAllowlist(t *testing.T) {
	s := newTestStorage(t)

	// 文本内容冒充图片要被拒绝
	_, err := s.Upload(constants.BucketAvatars, "u1/avatar.png",
		bytes.NewReader([]byte("definitely not an image")), "image/jpeg", "image/png", "image/gif")
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	// 真实 PNG 文件头放行
	_, err = s.Upload(constants.BucketAvatars, "u1/avatar.png",
		bytes.NewReader(pngHeader), "image/jpeg", "image/png", "image/gif")
	require.NoError(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Upload(constants.BucketChatAttachments, "c1/gone.bin", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, s.Delete(constants.BucketChatAttachments, "c1/gone.bin"))
	// 再删一次不报错
	require.NoError(t, s.Delete(constants.BucketChatAttachments, "c1/gone.bin"))
}

func TestPathFromURL(t *testing.T) {
	path, ok := PathFromURL("http://localhost:8000/static/chat-attachments/c1/x.jpg", constants.BucketChatAttachments)
	require.True(t, ok)
	assert.Equal(t, "c1/x.jpg", path)

	_, ok = PathFromURL("http://localhost:8000/static/avatars/u1.jpg", constants.BucketChatAttachments)
	assert.False(t, ok)

	_, ok = PathFromURL("http://localhost:8000/static/chat-attachments/", constants.BucketChatAttachments)
	assert.False(t, ok)
}

func TestExt(t *testing.T) {
	assert.Equal(t, "jpg", Ext("photo.JPG"))
	assert.Equal(t, "gz", Ext("archive.tar.gz"))
	assert.Equal(t, "bin", Ext("noext"))
	assert.Equal(t, "bin", Ext("trailingdot."))
}
