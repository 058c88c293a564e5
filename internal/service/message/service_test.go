package message

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsy/internal/dao/mysql"
	"chatsy/internal/feed"
	"chatsy/internal/model"
	"chatsy/internal/storage"
	"chatsy/internal/store/messagestore"
	"chatsy/pkg/errorx"
)

// fakeMessageRepo 内存消息表
type fakeMessageRepo struct {
	rows []model.Message
}

func (r *fakeMessageRepo) FindById(id string) (*model.Message, error) {
	for _, m := range r.rows {
		if m.Id == id {
			found := m
			return &found, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "消息不存在")
}

func (r *fakeMessageRepo) FindByConversationId(conversationId string) ([]model.Message, error) {
	var out []model.Message
	for _, m := range r.rows {
		if m.ConversationId == conversationId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) FindLastByConversationId(conversationId string) (*model.Message, error) {
	msgs, _ := r.FindByConversationId(conversationId)
	if len(msgs) == 0 {
		return nil, errorx.New(errorx.CodeNotFound, "会话还没有消息")
	}
	last := msgs[len(msgs)-1]
	return &last, nil
}

func (r *fakeMessageRepo) Create(message *model.Message) error {
	r.rows = append(r.rows, *message)
	return nil
}

func (r *fakeMessageRepo) MarkViewed(id string) (*model.Message, error) {
	for i, m := range r.rows {
		if m.Id == id {
			r.rows[i].IsViewed = true
			updated := r.rows[i]
			return &updated, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "消息不存在")
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

type env struct {
	repo          *fakeMessageRepo
	store         *storage.LocalStorage
	broker        *feed.ChannelBroker
	svc           *messageService
	attachmentDir string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	attachmentDir := filepath.Join(t.TempDir(), "chat-attachments")
	repo := &fakeMessageRepo{}
	objStore := storage.NewLocalStorage(attachmentDir, filepath.Join(t.TempDir(), "avatars"), "http://localhost:8000/static")
	broker := feed.NewChannelBroker()
	go broker.Start()
	t.Cleanup(broker.Close)

	return &env{
		repo:          repo,
		store:         objStore,
		broker:        broker,
		svc:           NewMessageService(&mysql.Repositories{Message: repo}, objStore, broker),
		attachmentDir: attachmentDir,
	}
}

func TestSendMessagePlainTextPublishesInsert(t *testing.T) {
	e := newEnv(t)
	sub := e.broker.Subscribe(feed.TableMessages, &feed.Filter{Column: "conversation_id", Equals: "c1"})
	defer sub.Unsubscribe()

	sent, err := e.svc.SendMessage(context.Background(), "c1", "u1", "hello", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sent.Id)
	assert.Equal(t, "hello", sent.Content)
	assert.Empty(t, sent.AttachmentUrl)
	require.Len(t, e.repo.rows, 1)

	select {
	case ev := <-sub.C():
		assert.Equal(t, feed.KindInsert, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for insert event")
	}
}

func TestSendMessageDetectsImageAttachment(t *testing.T) {
	e := newEnv(t)

	att := &messagestore.Attachment{
		FileName: "photo.png",
		Data:     bytes.NewReader(pngHeader),
		ViewOnce: true,
	}
	sent, err := e.svc.SendMessage(context.Background(), "c1", "u1", "", att)
	require.NoError(t, err)

	assert.Equal(t, model.AttachmentImage, sent.AttachmentType)
	assert.True(t, sent.IsViewOnce)
	assert.True(t, strings.HasPrefix(sent.AttachmentUrl, "http://localhost:8000/static/chat-attachments/c1/"))
	assert.True(t, strings.HasSuffix(sent.AttachmentUrl, ".png"))

	// 对象确实写到了磁盘上
	objectName, ok := storage.PathFromURL(sent.AttachmentUrl, "chat-attachments")
	require.True(t, ok)
	_, err = os.Stat(filepath.Join(e.attachmentDir, filepath.FromSlash(objectName)))
	require.NoError(t, err)
}

func TestSendMessageClassifiesBinaryAsFile(t *testing.T) {
	e := newEnv(t)

	att := &messagestore.Attachment{
		FileName: "doc.pdf",
		Data:     bytes.NewReader([]byte("%PDF-1.7 not really")),
	}
	sent, err := e.svc.SendMessage(context.Background(), "c1", "u1", "", att)
	require.NoError(t, err)
	assert.Equal(t, model.AttachmentFile, sent.AttachmentType)
	assert.False(t, sent.IsViewOnce)
}

func TestMarkViewedPurgesViewOnceObject(t *testing.T) {
	e := newEnv(t)

	att := &messagestore.Attachment{
		FileName: "secret.png",
		Data:     bytes.NewReader(pngHeader),
		ViewOnce: true,
	}
	sent, err := e.svc.SendMessage(context.Background(), "c1", "u1", "", att)
	require.NoError(t, err)
	objectName, ok := storage.PathFromURL(sent.AttachmentUrl, "chat-attachments")
	require.True(t, ok)
	objectPath := filepath.Join(e.attachmentDir, filepath.FromSlash(objectName))
	_, err = os.Stat(objectPath)
	require.NoError(t, err)

	updated, err := e.svc.MarkViewed(context.Background(), sent)
	require.NoError(t, err)
	assert.True(t, updated.IsViewed)

	// 阅后即焚对象已被清理
	_, err = os.Stat(objectPath)
	assert.True(t, os.IsNotExist(err))
}

func TestMarkViewedKeepsOrdinaryAttachment(t *testing.T) {
	e := newEnv(t)

	att := &messagestore.Attachment{
		FileName: "keep.png",
		Data:     bytes.NewReader(pngHeader),
	}
	sent, err := e.svc.SendMessage(context.Background(), "c1", "u1", "", att)
	require.NoError(t, err)
	objectName, _ := storage.PathFromURL(sent.AttachmentUrl, "chat-attachments")
	objectPath := filepath.Join(e.attachmentDir, filepath.FromSlash(objectName))

	_, err = e.svc.MarkViewed(context.Background(), sent)
	require.NoError(t, err)

	// 非阅后即焚的附件保留
	_, err = os.Stat(objectPath)
	require.NoError(t, err)
}

func TestListMessagesFallsBackToDBWithoutCache(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.SendMessage(context.Background(), "c1", "u1", "one", nil)
	require.NoError(t, err)
	_, err = e.svc.SendMessage(context.Background(), "c1", "u1", "two", nil)
	require.NoError(t, err)

	got, err := e.svc.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetMessageNotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.GetMessage(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, errorx.CodeNotFound, errorx.GetCode(err))
}
