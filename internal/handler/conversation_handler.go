// Package handler 提供 HTTP 请求处理器
// 本文件处理会话目录相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/dto/request"
	"chatsy/internal/service"
)

// ConversationHandler 会话请求处理器
type ConversationHandler struct {
	convSvc service.ConversationService
}

// NewConversationHandler 创建会话处理器实例
func NewConversationHandler(convSvc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc}
}

// List 获取当前用户的会话列表
// GET /conversation/list
// 每个条目带参与者资料和最新消息摘要
func (h *ConversationHandler) List(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	data, err := h.convSvc.List(c.Request.Context(), userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// OpenDirect 打开（或创建）和目标用户的一对一会话
// POST /conversation/openDirect
// 响应: { conversation_id: string }
func (h *ConversationHandler) OpenDirect(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.OpenDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	conversationId, err := h.convSvc.OpenDirect(c.Request.Context(), userId, req.TargetUserId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"conversation_id": conversationId})
}

// Summarize 用 AI 总结整段会话
// POST /conversation/summarize
// 响应: { summary: string }
func (h *ConversationHandler) Summarize(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.SummarizeConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	summary, err := h.convSvc.Summarize(c.Request.Context(), req.ConversationId, userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"summary": summary})
}
