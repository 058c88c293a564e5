// Package handler 提供 HTTP 请求处理器
// 本文件处理 AI 助手相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/dto/request"
	"chatsy/internal/service"
)

// AIHandler AI 助手请求处理器
type AIHandler struct {
	aiSvc service.AIService
}

// NewAIHandler 创建 AI 助手处理器实例
func NewAIHandler(aiSvc service.AIService) *AIHandler {
	return &AIHandler{aiSvc: aiSvc}
}

// Send 向助手发送一条消息
// POST /ai/send
func (h *AIHandler) Send(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.AIChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	data, err := h.aiSvc.SendMessage(c.Request.Context(), userId, req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Summarize 总结当前与助手的对话
// POST /ai/summarize
func (h *AIHandler) Summarize(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	data, err := h.aiSvc.Summarize(c.Request.Context(), userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// History 获取与助手的完整对话记录
// GET /ai/history
func (h *AIHandler) History(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	data, err := h.aiSvc.History(userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Clear 清空与助手的对话记录
// POST /ai/clear
func (h *AIHandler) Clear(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	if err := h.aiSvc.Clear(userId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
