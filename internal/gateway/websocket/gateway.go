// Package websocket 实现聊天网关
// 核心职责：WebSocket 连接生命周期管理
// 1. 建立连接（Upgrade）并校验身份
// 2. 每个连接挂载一份 messagestore.Store，打开会话即拉取加订阅
// 3. 会话目录变更时向客户端推送刷新后的会话列表
// 4. 阅后即焚附件的打开/关闭走 viewonce 状态机
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatsy/internal/feed"
	"chatsy/internal/model"
	"chatsy/internal/service"
	"chatsy/internal/store/messagestore"
	"chatsy/internal/store/viewonce"
	"chatsy/pkg/constants"
	"chatsy/pkg/errorx"
	"chatsy/pkg/util/jwt"
)

// 浏览器端 WebSocket 无法自定义 Header，放开跨域并用查询参数传 token
var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 客户端指令
const (
	actionOpenConversation  = "open_conversation"
	actionCloseConversation = "close_conversation"
	actionSend              = "send"
	actionOpenAttachment    = "open_attachment"
	actionCloseAttachment   = "close_attachment"
)

// command 客户端下行指令
type command struct {
	Action         string `json:"action"`
	ConversationId string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	MessageId      string `json:"message_id,omitempty"`
}

// outbound 服务端上行推送
type outbound struct {
	Type           string `json:"type"`
	ConversationId string `json:"conversation_id,omitempty"`
	MessageId      string `json:"message_id,omitempty"`
	State          string `json:"state,omitempty"`
	Msg            string `json:"msg,omitempty"`
	Data           any    `json:"data,omitempty"`
}

// Gateway WebSocket 聊天网关
type Gateway struct {
	svc    *service.Services
	broker feed.Broker
}

// NewGateway 创建网关实例
func NewGateway(svc *service.Services, broker feed.Broker) *Gateway {
	return &Gateway{svc: svc, broker: broker}
}

// Handle 升级连接并启动会话
// GET /ws?token=xxx
func (g *Gateway) Handle(c *gin.Context) {
	claims, err := jwt.ParseToken(c.Query("token"))
	if err != nil || claims.Subject != "access_token" {
		c.JSON(http.StatusOK, gin.H{
			"code": errorx.CodeUnauthorized,
			"msg":  "请先登录",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error("websocket upgrade error", zap.Error(err))
		return
	}

	sess := &session{
		gateway:  g,
		conn:     conn,
		userId:   claims.UserID,
		store:    messagestore.New(g.svc.Message, g.broker),
		sendBack: make(chan []byte, constants.CHANNEL_SIZE),
	}
	sess.start()
}

// session 单个客户端连接的状态
// 所有指令都在读协程内串行处理，store 的并发来自订阅消费协程
type session struct {
	gateway *Gateway
	conn    *websocket.Conn
	userId  string
	store   *messagestore.Store

	unsubscribe func()
	stopWatch   func()
	attachment  *viewonce.Lifecycle

	sendBack  chan []byte
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func (s *session) start() {
	zap.L().Info("ws连接成功", zap.String("user_id", s.userId))

	// 消息变更回流推送给客户端
	s.store.SetOnApply(func(kind feed.Kind, message model.Message) {
		typ := "message_insert"
		if kind == feed.KindUpdate {
			typ = "message_update"
		}
		s.push(outbound{Type: typ, Data: message})
	})

	// 会话目录变化时重算列表并推送
	s.stopWatch = s.gateway.svc.Directory.Watch(s.userId, s.pushConversationList)

	go s.write()
	s.pushConversationList()
	s.read()
}

// read 读取客户端指令的主循环，连接断开后做收尾
func (s *session) read() {
	defer s.close()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			zap.L().Info("ws连接断开", zap.String("user_id", s.userId), zap.Error(err))
			return
		}
		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.pushError(errorx.ErrInvalidParam)
			continue
		}
		s.handle(cmd)
	}
}

// write 把 sendBack 通道里的推送写给客户端
func (s *session) write() {
	for raw := range s.sendBack {
		if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			zap.L().Error("ws write error", zap.Error(err))
			return
		}
	}
}

// handle 分发单条指令
func (s *session) handle(cmd command) {
	ctx := context.Background()
	switch cmd.Action {
	case actionOpenConversation:
		s.openConversation(ctx, cmd.ConversationId)
	case actionCloseConversation:
		s.closeConversation()
	case actionSend:
		if _, err := s.store.Send(ctx, cmd.Content, s.userId, nil); err != nil {
			s.pushError(err)
		}
	case actionOpenAttachment:
		s.openAttachment(cmd.MessageId)
	case actionCloseAttachment:
		s.closeAttachment(ctx)
	default:
		s.pushError(errorx.New(errorx.CodeInvalidParam, "未知指令"))
	}
}

// openConversation 切换到指定会话：成员校验、拆旧订阅、订阅加全量拉取
func (s *session) openConversation(ctx context.Context, conversationId string) {
	if conversationId == "" {
		s.pushError(errorx.ErrInvalidParam)
		return
	}
	if err := s.gateway.svc.Conversation.EnsureMember(ctx, conversationId, s.userId); err != nil {
		s.pushError(err)
		return
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.attachment = nil
	s.unsubscribe = s.store.Subscribe(conversationId)
	if err := s.store.Load(ctx, conversationId); err != nil {
		s.pushError(err)
		return
	}
	s.push(outbound{
		Type:           "message_list",
		ConversationId: conversationId,
		Data:           s.store.Messages(),
	})
}

// closeConversation 退出当前会话
func (s *session) closeConversation() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.attachment = nil
	_ = s.store.Load(context.Background(), "")
}

// openAttachment 打开阅后即焚附件的全屏查看
func (s *session) openAttachment(messageId string) {
	var target *model.Message
	for _, m := range s.store.Messages() {
		if m.Id == messageId {
			msg := m
			target = &msg
			break
		}
	}
	if target == nil {
		s.pushError(errorx.New(errorx.CodeNotFound, "消息不存在"))
		return
	}

	lc, err := viewonce.New(target, s.userId, func(ctx context.Context) error {
		return s.store.MarkAsViewed(ctx, target)
	})
	if err != nil {
		s.pushError(err)
		return
	}
	if err := lc.Open(); err != nil {
		s.pushError(err)
		return
	}
	s.attachment = lc
	s.push(outbound{
		Type:      "attachment_state",
		MessageId: messageId,
		State:     string(lc.State()),
		Data:      target.AttachmentUrl,
	})
}

// closeAttachment 关闭全屏查看，非发送者关闭即触发失效
func (s *session) closeAttachment(ctx context.Context) {
	if s.attachment == nil {
		s.pushError(errorx.New(errorx.CodeInvalidParam, "附件未在查看中"))
		return
	}
	lc := s.attachment
	s.attachment = nil
	if err := lc.Close(ctx); err != nil {
		s.pushError(err)
	}
	s.push(outbound{Type: "attachment_state", State: string(lc.State())})
}

// pushConversationList 重算会话列表并推送
func (s *session) pushConversationList() {
	list, err := s.gateway.svc.Conversation.List(context.Background(), s.userId)
	if err != nil {
		s.pushError(err)
		return
	}
	s.push(outbound{Type: "conversation_list", Data: list})
}

// push 序列化并投递一条推送，通道满或连接已关闭时丢弃
func (s *session) push(p outbound) {
	raw, err := json.Marshal(p)
	if err != nil {
		zap.L().Error("marshal push error", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.sendBack <- raw:
	default:
		zap.L().Warn("ws send channel full, drop push", zap.String("user_id", s.userId))
	}
}

// pushError 把错误转成推送
func (s *session) pushError(err error) {
	s.push(outbound{
		Type: "error",
		Msg:  err.Error(),
	})
}

// close 收尾：退订、停表、关连接
func (s *session) close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.stopWatch != nil {
			s.stopWatch()
		}
		s.store.Close()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.sendBack)
		_ = s.conn.Close()
	})
}
