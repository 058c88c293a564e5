package respond

// RefreshTokenRespond 刷新 Token 响应
type RefreshTokenRespond struct {
	AccessToken string `json:"access_token"`
}
