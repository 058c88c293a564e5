package request

// UpdateProfileRequest 更新用户资料请求
type UpdateProfileRequest struct {
	Username  string `json:"username" binding:"omitempty,min=3,max=32"`
	AvatarUrl string `json:"avatar_url"`
}
