package request

// RegisterRequest 注册请求
// 使用位置:
//   - internal/handler/auth_handler.go: Register
//   - internal/service/auth/service.go: Register
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6"`
}
