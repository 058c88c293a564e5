package respond

// LoginRespond 登录/注册响应
type LoginRespond struct {
	Id           string `json:"id"`
	Username     string `json:"username"`
	AvatarUrl    string `json:"avatar_url"`
	CreatedAt    string `json:"created_at"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
