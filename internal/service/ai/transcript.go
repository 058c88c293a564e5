package ai

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 助手对话的一轮
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// transcriptStore 按用户持久化助手对话记录
// 每个用户一个 JSON 文件，整读整写；文件丢失或损坏时从空记录开始
type transcriptStore struct {
	dir string
	mu  sync.Mutex
}

func newTranscriptStore(dir string) *transcriptStore {
	return &transcriptStore{dir: dir}
}

// path 用户记录文件路径
// userId 是 UUID，仍然拦一道路径分隔符防止目录穿越
func (t *transcriptStore) path(userId string) (string, bool) {
	if userId == "" || strings.ContainsAny(userId, "/\\.") {
		return "", false
	}
	return filepath.Join(t.dir, userId+".json"), true
}

// Load 读取用户的对话记录
// 文件不存在或内容损坏返回空记录，不报错
func (t *transcriptStore) Load(userId string) []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.path(userId)
	if !ok {
		return nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("read transcript error", zap.String("path", p), zap.Error(err))
		}
		return nil
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		zap.L().Warn("corrupted transcript, starting fresh", zap.String("path", p), zap.Error(err))
		return nil
	}
	return turns
}

// Save 整体覆盖写入用户的对话记录
// 持久化失败只记日志，内存中的本轮对话仍然有效
func (t *transcriptStore) Save(userId string, turns []Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.path(userId)
	if !ok {
		return
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		zap.L().Error("create transcript dir error", zap.Error(err))
		return
	}
	data, err := json.Marshal(turns)
	if err != nil {
		zap.L().Error("marshal transcript error", zap.Error(err))
		return
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		zap.L().Error("write transcript error", zap.String("path", p), zap.Error(err))
	}
}

// Clear 删除用户的对话记录
func (t *transcriptStore) Clear(userId string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.path(userId)
	if !ok {
		return
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		zap.L().Error("remove transcript error", zap.String("path", p), zap.Error(err))
	}
}
