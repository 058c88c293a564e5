// Package message 消息业务逻辑
// 发送链路：附件上传 -> 消息落库 -> 发布 insert 变更事件 -> 失效缓存
// 标记已读链路：翻转 is_viewed -> 发布 update 变更事件 -> 清理阅后即焚对象
package message

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatsy/internal/dao/mysql"
	myredis "chatsy/internal/dao/redis"
	"chatsy/internal/feed"
	"chatsy/internal/model"
	"chatsy/internal/storage"
	"chatsy/internal/store/messagestore"
	"chatsy/pkg/constants"
	"chatsy/pkg/errorx"
	"chatsy/pkg/util/random"
)

// messageService 消息业务逻辑实现
type messageService struct {
	repos  *mysql.Repositories
	store  storage.ObjectStorage
	broker feed.Broker
}

// NewMessageService 构造函数
func NewMessageService(repos *mysql.Repositories, store storage.ObjectStorage, broker feed.Broker) *messageService {
	return &messageService{repos: repos, store: store, broker: broker}
}

// cacheKey 会话消息列表的缓存 Key
func cacheKey(conversationId string) string {
	return "message_list_" + conversationId
}

// ListMessages 按会话全量拉取聊天记录，创建时间升序
// 优先读缓存，未命中查数据库并异步回填
func (m *messageService) ListMessages(ctx context.Context, conversationId string) ([]model.Message, error) {
	rspString, err := myredis.GetKeyNilIsErr(ctx, cacheKey(conversationId))
	if err == nil {
		var cached []model.Message
		if err := json.Unmarshal([]byte(rspString), &cached); err != nil {
			zap.L().Error("json unmarshal cache error", zap.Error(err))
			// 缓存解析失败仍然回源数据库
		} else {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		zap.L().Error("redis get key error", zap.Error(err))
	}

	messageList, err := m.repos.Message.FindByConversationId(conversationId)
	if err != nil {
		zap.L().Error("find messages by conversation id error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	// 异步回填缓存
	myredis.SubmitCacheTask(func() {
		jsonBytes, err := json.Marshal(messageList)
		if err != nil {
			zap.L().Error("json marshal error", zap.Error(err))
			return
		}
		if err := myredis.SetKeyEx(context.Background(), cacheKey(conversationId), string(jsonBytes), time.Duration(constants.REDIS_TIMEOUT)*time.Minute); err != nil {
			zap.L().Error("redis set key error", zap.Error(err))
		}
	})

	return messageList, nil
}

// GetMessage 按 id 获取单条消息
func (m *messageService) GetMessage(ctx context.Context, messageId string) (*model.Message, error) {
	message, err := m.repos.Message.FindById(messageId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "消息不存在")
		}
		zap.L().Error("find message by id error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return message, nil
}

// SendMessage 发送消息
// 带附件时先上传对象存储再落库，上传失败整条消息不写入
func (m *messageService) SendMessage(ctx context.Context, conversationId, senderId, content string, att *messagestore.Attachment) (*model.Message, error) {
	message := &model.Message{
		Id:             uuid.NewString(),
		ConversationId: conversationId,
		SenderId:       senderId,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	if att != nil {
		url, contentType, err := m.uploadAttachment(conversationId, att)
		if err != nil {
			return nil, err
		}
		message.AttachmentUrl = url
		message.IsViewOnce = att.ViewOnce
		if strings.HasPrefix(contentType, "image/") {
			message.AttachmentType = model.AttachmentImage
		} else {
			message.AttachmentType = model.AttachmentFile
		}
	}

	if err := m.repos.Message.Create(message); err != nil {
		zap.L().Error("create message error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	m.publish(ctx, feed.KindInsert, message)
	m.invalidateCache(conversationId)

	return message, nil
}

// MarkViewed 翻转 is_viewed 并清理阅后即焚附件
// 对象删除失败只记日志，已读标记不回滚
func (m *messageService) MarkViewed(ctx context.Context, message *model.Message) (*model.Message, error) {
	updated, err := m.repos.Message.MarkViewed(message.Id)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeInvalidParam, "消息不存在")
		}
		zap.L().Error("mark message viewed error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	m.publish(ctx, feed.KindUpdate, updated)
	m.invalidateCache(updated.ConversationId)

	if updated.IsViewOnce && updated.AttachmentUrl != "" {
		if objectName, ok := storage.PathFromURL(updated.AttachmentUrl, constants.BucketChatAttachments); ok {
			if err := m.store.Delete(constants.BucketChatAttachments, objectName); err != nil {
				zap.L().Error("delete view-once object error",
					zap.String("object", objectName), zap.Error(err))
			}
		} else {
			zap.L().Warn("cannot resolve object path from url", zap.String("url", updated.AttachmentUrl))
		}
	}

	return updated, nil
}

// uploadAttachment 上传附件并返回公开 URL 和探测到的 MIME 类型
// 对象路径固定为 {conversationId}/{随机名}.{扩展名}
func (m *messageService) uploadAttachment(conversationId string, att *messagestore.Attachment) (string, string, error) {
	// 读取前 512 字节做 Magic Bytes 类型探测
	buffer := make([]byte, 512)
	if _, err := att.Data.Read(buffer); err != nil && err != io.EOF {
		zap.L().Error("read attachment header error", zap.Error(err))
		return "", "", errorx.New(errorx.CodeUploadFailed, "附件读取失败")
	}
	contentType := http.DetectContentType(buffer)
	if _, err := att.Data.Seek(0, io.SeekStart); err != nil {
		return "", "", errorx.New(errorx.CodeUploadFailed, "附件读取失败")
	}

	objectName := conversationId + "/" + random.GetNowAndLenRandomString(10) + "." + storage.Ext(att.FileName)
	url, err := m.store.Upload(constants.BucketChatAttachments, objectName, att.Data)
	if err != nil {
		zap.L().Error("upload attachment error", zap.String("object", objectName), zap.Error(err))
		return "", "", errorx.New(errorx.CodeUploadFailed, "附件上传失败")
	}
	zap.L().Info("upload attachment success", zap.String("object", objectName))
	return url, contentType, nil
}

// publish 发布变更事件，失败只记日志（订阅方靠重新拉取兜底）
func (m *messageService) publish(ctx context.Context, kind feed.Kind, message *model.Message) {
	payload, err := json.Marshal(message)
	if err != nil {
		zap.L().Error("marshal message event error", zap.Error(err))
		return
	}
	if err := m.broker.Publish(ctx, feed.ChangeEvent{
		Table:   feed.TableMessages,
		Kind:    kind,
		Payload: payload,
	}); err != nil {
		zap.L().Error("publish message event error", zap.Error(err))
	}
}

// invalidateCache 异步失效会话消息缓存
func (m *messageService) invalidateCache(conversationId string) {
	myredis.SubmitCacheTask(func() {
		if err := myredis.DelKeyIfExists(context.Background(), cacheKey(conversationId)); err != nil {
			zap.L().Error("redis del key error", zap.Error(err))
		}
	})
}
