package request

// SearchUsersRequest 按用户名搜索用户请求
type SearchUsersRequest struct {
	Query string `form:"query" binding:"required"`
}
