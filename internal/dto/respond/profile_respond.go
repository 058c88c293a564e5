package respond

// ProfileRespond 用户资料响应
type ProfileRespond struct {
	Id        string `json:"id"`
	Username  string `json:"username"`
	AvatarUrl string `json:"avatar_url"`
	CreatedAt string `json:"created_at"`
}
