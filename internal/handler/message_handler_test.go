package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsy/internal/dto/respond"
	"chatsy/internal/model"
	"chatsy/internal/store/messagestore"
	"chatsy/pkg/errorx"
)

// ==================== Service 桩 ====================

type stubMessageService struct {
	message         *model.Message
	markViewedCalls int
}

func (s *stubMessageService) ListMessages(ctx context.Context, conversationId string) ([]model.Message, error) {
	return nil, nil
}

func (s *stubMessageService) SendMessage(ctx context.Context, conversationId, senderId, content string, att *messagestore.Attachment) (*model.Message, error) {
	return nil, nil
}

func (s *stubMessageService) MarkViewed(ctx context.Context, message *model.Message) (*model.Message, error) {
	s.markViewedCalls++
	updated := *message
	updated.IsViewed = true
	return &updated, nil
}

func (s *stubMessageService) GetMessage(ctx context.Context, messageId string) (*model.Message, error) {
	if s.message != nil && s.message.Id == messageId {
		return s.message, nil
	}
	return nil, errorx.New(errorx.CodeNotFound, "消息不存在")
}

type stubConversationService struct {
	memberErr error
}

func (s *stubConversationService) List(ctx context.Context, userId string) ([]respond.ConversationRespond, error) {
	return nil, nil
}

func (s *stubConversationService) OpenDirect(ctx context.Context, currentUserId, targetUserId string) (string, error) {
	return "", nil
}

func (s *stubConversationService) EnsureMember(ctx context.Context, conversationId, userId string) error {
	return s.memberErr
}

func (s *stubConversationService) Summarize(ctx context.Context, conversationId, userId string) (string, error) {
	return "", nil
}

// ==================== 测试环境 ====================

func newMarkViewedRouter(msgSvc *stubMessageService, convSvc *stubConversationService, userId string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewMessageHandler(msgSvc, convSvc)
	engine.POST("/message/markViewed", func(c *gin.Context) {
		c.Set("user_id", userId)
	}, h.MarkViewed)
	return engine
}

func postMarkViewed(t *testing.T, engine *gin.Engine, messageId string) *ResponseData {
	t.Helper()
	body := `{"message_id":"` + messageId + `"}`
	req := httptest.NewRequest(http.MethodPost, "/message/markViewed", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var rsp ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rsp))
	return &rsp
}

func viewOnceMsg(sender string, viewed bool) *model.Message {
	return &model.Message{
		Id:             "m1",
		ConversationId: "c1",
		SenderId:       sender,
		AttachmentUrl:  "http://localhost:8000/static/chat-attachments/c1/x.png",
		AttachmentType: model.AttachmentImage,
		IsViewOnce:     true,
		IsViewed:       viewed,
		CreatedAt:      time.Now(),
	}
}

// ==================== 测试用例 ====================

func TestMarkViewedRecipientExpiresViewOnce(t *testing.T) {
	msgSvc := &stubMessageService{message: viewOnceMsg("u_sender", false)}
	engine := newMarkViewedRouter(msgSvc, &stubConversationService{}, "u_recipient")

	rsp := postMarkViewed(t, engine, "m1")
	assert.Equal(t, errorx.CodeSuccess, rsp.Code)
	assert.Equal(t, 1, msgSvc.markViewedCalls)
}

func TestMarkViewedRejectsSender(t *testing.T) {
	// 发送者预览自己的附件不消耗查看次数，也不触发清理
	msgSvc := &stubMessageService{message: viewOnceMsg("u_sender", false)}
	engine := newMarkViewedRouter(msgSvc, &stubConversationService{}, "u_sender")

	rsp := postMarkViewed(t, engine, "m1")
	assert.Equal(t, errorx.CodeInvalidParam, rsp.Code)
	assert.Zero(t, msgSvc.markViewedCalls)
}

func TestMarkViewedRejectsNonViewOnceMessage(t *testing.T) {
	plain := &model.Message{
		Id:             "m1",
		ConversationId: "c1",
		SenderId:       "u_sender",
		Content:        "普通消息",
		CreatedAt:      time.Now(),
	}
	msgSvc := &stubMessageService{message: plain}
	engine := newMarkViewedRouter(msgSvc, &stubConversationService{}, "u_recipient")

	rsp := postMarkViewed(t, engine, "m1")
	assert.Equal(t, errorx.CodeInvalidParam, rsp.Code)
	assert.Zero(t, msgSvc.markViewedCalls)
}

func TestMarkViewedRejectsAlreadyViewed(t *testing.T) {
	msgSvc := &stubMessageService{message: viewOnceMsg("u_sender", true)}
	engine := newMarkViewedRouter(msgSvc, &stubConversationService{}, "u_recipient")

	rsp := postMarkViewed(t, engine, "m1")
	assert.Equal(t, errorx.CodeInvalidParam, rsp.Code)
	assert.Zero(t, msgSvc.markViewedCalls)
}

func TestMarkViewedRequiresMembership(t *testing.T) {
	msgSvc := &stubMessageService{message: viewOnceMsg("u_sender", false)}
	convSvc := &stubConversationService{
		memberErr: errorx.New(errorx.CodeUnauthorized, "无权访问该会话"),
	}
	engine := newMarkViewedRouter(msgSvc, convSvc, "u_outsider")

	rsp := postMarkViewed(t, engine, "m1")
	assert.Equal(t, errorx.CodeUnauthorized, rsp.Code)
	assert.Zero(t, msgSvc.markViewedCalls)
}
