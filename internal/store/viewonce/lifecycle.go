// Package viewonce 实现阅后即焚附件的生命周期状态机
// 状态：Hidden（未打开）→ Viewing（全屏查看中）→ Expired（已失效，终态）
// 只有非发送者的打开-关闭才触发失效；发送者预览自己的附件不消耗查看次数
package viewonce

import (
	"context"

	"chatsy/internal/model"
	"chatsy/pkg/errorx"
)

// State 生命周期状态
type State string

const (
	StateHidden  State = "hidden"  // 未打开，有附件且带阅后即焚标记
	StateViewing State = "viewing" // 全屏查看中
	StateExpired State = "expired" // 已查看，附件视为不存在（终态）
)

// MarkViewedFunc 失效时调用的远端标记加清理操作
// 对应 messagestore.Store 的 MarkAsViewed
type MarkViewedFunc func(ctx context.Context) error

// Lifecycle 单条阅后即焚消息对单个查看者的生命周期
type Lifecycle struct {
	message    *model.Message
	viewerId   string
	state      State
	markViewed MarkViewedFunc
}

// New 创建生命周期实例
// 消息必须带附件和阅后即焚标记；已查看过的消息直接进入终态
func New(message *model.Message, viewerId string, markViewed MarkViewedFunc) (*Lifecycle, error) {
	if message == nil || !message.IsViewOnce || message.AttachmentUrl == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "不是阅后即焚附件消息")
	}
	state := StateHidden
	if message.IsViewed {
		state = StateExpired
	}
	return &Lifecycle{
		message:    message,
		viewerId:   viewerId,
		state:      state,
		markViewed: markViewed,
	}, nil
}

// State 当前状态
func (l *Lifecycle) State() State {
	return l.state
}

// CanOpen 是否还允许打开（UI 据此决定是否渲染打开入口）
func (l *Lifecycle) CanOpen() bool {
	return l.state == StateHidden && !l.message.IsViewed
}

// Open 打开全屏查看
// 仅允许从 Hidden 进入；已失效的消息拒绝打开
func (l *Lifecycle) Open() error {
	if !l.CanOpen() {
		return errorx.New(errorx.CodeInvalidParam, "附件已失效或正在查看")
	}
	l.state = StateViewing
	return nil
}

// Close 关闭全屏查看
// 非发送者关闭且消息尚未被查看过时触发失效：远端标记 + 附件清理，进入终态；
// 发送者预览自己的附件，关闭后回到 Hidden，不消耗查看次数
func (l *Lifecycle) Close(ctx context.Context) error {
	if l.state != StateViewing {
		return errorx.New(errorx.CodeInvalidParam, "附件未在查看中")
	}
	if l.viewerId == l.message.SenderId || l.message.IsViewed {
		l.state = StateHidden
		return nil
	}
	l.state = StateExpired
	if l.markViewed != nil {
		return l.markViewed(ctx)
	}
	return nil
}
