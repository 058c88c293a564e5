// Package handler 提供 HTTP 请求处理器
// 本文件处理用户资料相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"chatsy/internal/dto/request"
	"chatsy/internal/service"
)

// ProfileHandler 用户资料请求处理器
type ProfileHandler struct {
	profileSvc service.ProfileService
}

// NewProfileHandler 创建用户资料处理器实例
func NewProfileHandler(profileSvc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// GetMe 获取当前登录用户的资料
// GET /profile/me
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	data, err := h.profileSvc.GetProfile(userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UpdateProfile 更新当前用户的用户名/头像
// POST /profile/update
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	data, err := h.profileSvc.UpdateProfile(userId, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SearchUsers 按用户名搜索用户
// GET /profile/search?query=xxx
func (h *ProfileHandler) SearchUsers(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var req request.SearchUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	data, err := h.profileSvc.SearchUsers(req.Query, userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UploadAvatar 上传头像
// POST /profile/uploadAvatar (multipart)
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userId, err := currentUserId(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	url, err := h.profileSvc.UploadAvatar(c, userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, gin.H{"avatar_url": url})
}
