// Package feed 实现变更推送（change feed）
// event.go
// 核心职责：定义变更事件的载体
// 数据层每次插入/更新都会以新行 JSON 的形式发布一条事件，
// 订阅方按表名和可选的列过滤条件接收事件
package feed

import "encoding/json"

// Kind 事件类型
type Kind string

const (
	KindInsert Kind = "insert" // 新行写入
	KindUpdate Kind = "update" // 已有行变更（目前只有 is_viewed 翻转）
)

// 支持订阅的逻辑表名
const (
	TableMessages     = "messages"
	TableParticipants = "conversation_participants"
)

// ChangeEvent 一次数据变更
// Payload 是变更后整行的 JSON 序列化结果
type ChangeEvent struct {
	Table   string          `json:"table"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Filter 行级过滤条件，形如 "conversation_id = X"
// 为 nil 时订阅整张表
type Filter struct {
	Column string
	Equals string
}

// Matches 判断事件载荷是否命中过滤条件
// 载荷解析失败按不命中处理，事件被丢弃而不是错投
func (f *Filter) Matches(payload json.RawMessage) bool {
	if f == nil {
		return true
	}
	var row map[string]any
	if err := json.Unmarshal(payload, &row); err != nil {
		return false
	}
	v, ok := row[f.Column].(string)
	return ok && v == f.Equals
}
