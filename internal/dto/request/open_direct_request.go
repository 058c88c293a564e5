package request

// OpenDirectRequest 打开（或创建）一对一会话请求
type OpenDirectRequest struct {
	TargetUserId string `json:"target_user_id" binding:"required"`
}
