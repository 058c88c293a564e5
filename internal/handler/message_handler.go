// Package handler 提供 HTTP 请求处理器
// 本文件处理消息相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/dto/request"
	"chatsy/internal/service"
	"chatsy/internal/store/messagestore"
	"chatsy/pkg/constants"
	"chatsy/pkg/errorx"
)

// MessageHandler 消息请求处理器
// 消息读写前都通过 ConversationService 做成员校验
type MessageHandler struct {
	messageSvc service.MessageService
	convSvc    service.ConversationService
}

// NewMessageHandler 创建消息处理器实例
func NewMessageHandler(messageSvc service.MessageService, convSvc service.ConversationService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc, convSvc: convSvc}
}

// GetMessageList 获取会话的全量消息，创建时间升序
// GET /message/list?conversation_id=xxx
func (h *MessageHandler) GetMessageList(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.GetMessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.convSvc.EnsureMember(c.Request.Context(), req.ConversationId, userId); err != nil {
		HandleError(c, err)
		return
	}

	data, err := h.messageSvc.ListMessages(c.Request.Context(), req.ConversationId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Send 发送消息
// POST /message/send (multipart 或 JSON)
// 附件放 multipart 的 file 字段，类型由服务端按文件头探测
func (h *MessageHandler) Send(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.convSvc.EnsureMember(c.Request.Context(), req.ConversationId, userId); err != nil {
		HandleError(c, err)
		return
	}

	var att *messagestore.Attachment
	if fileHeader, err := c.FormFile("file"); err == nil {
		if fileHeader.Size > constants.FILE_MAX_SIZE {
			HandleError(c, errorx.New(errorx.CodeInvalidParam, "附件超出大小限制"))
			return
		}
		src, err := fileHeader.Open()
		if err != nil {
			HandleError(c, errorx.ErrServerBusy)
			return
		}
		defer src.Close()
		att = &messagestore.Attachment{
			FileName: fileHeader.Filename,
			Data:     src,
			ViewOnce: req.IsViewOnce,
		}
	}
	if att == nil && req.Content == "" {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "消息内容不能为空"))
		return
	}

	data, err := h.messageSvc.SendMessage(c.Request.Context(), req.ConversationId, userId, req.Content, att)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkViewed 标记阅后即焚消息为已读并清理附件
// POST /message/markViewed
func (h *MessageHandler) MarkViewed(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.MarkViewedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	message, err := h.messageSvc.GetMessage(c.Request.Context(), req.MessageId)
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.convSvc.EnsureMember(c.Request.Context(), message.ConversationId, userId); err != nil {
		HandleError(c, err)
		return
	}

	// 只有接收方打开阅后即焚附件才计入失效，发送者预览不消耗查看次数
	if !message.IsViewOnce || message.IsViewed {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "仅未查看的阅后即焚消息支持该操作"))
		return
	}
	if message.SenderId == userId {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "不能标记自己发送的消息"))
		return
	}

	data, err := h.messageSvc.MarkViewed(c.Request.Context(), message)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
