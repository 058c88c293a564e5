// Package conversation 会话目录业务逻辑
// 列表聚合和"查找或创建"复用 store/directory，这里只做 DTO 映射和成员校验
package conversation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"chatsy/internal/dao/mysql"
	"chatsy/internal/dto/respond"
	"chatsy/internal/store/directory"
	"chatsy/pkg/errorx"
)

// Summarizer 会话总结依赖的 AI 能力切面，由 service/ai 实现
type Summarizer interface {
	SummarizeConversation(ctx context.Context, otherUsername, conversationText string) (string, error)
}

// conversationService 会话业务逻辑实现
type conversationService struct {
	repos *mysql.Repositories
	dir   *directory.Directory
	ai    Summarizer
}

// NewConversationService 构造函数
func NewConversationService(repos *mysql.Repositories, dir *directory.Directory, ai Summarizer) *conversationService {
	return &conversationService{repos: repos, dir: dir, ai: ai}
}

// List 获取用户的会话列表
// 单个会话的摘要拉取失败不拖垮整个列表，错误随条目返回
func (s *conversationService) List(ctx context.Context, userId string) ([]respond.ConversationRespond, error) {
	entries, err := s.dir.Refresh(ctx, userId)
	if err != nil {
		zap.L().Error("refresh conversation directory error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	rspList := make([]respond.ConversationRespond, 0, len(entries))
	for _, entry := range entries {
		rsp := respond.ConversationRespond{
			Id:        entry.Conversation.Id,
			IsGroup:   entry.Conversation.IsGroup,
			CreatedAt: entry.Conversation.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		rsp.Participants = make([]respond.ProfileRespond, 0, len(entry.Participants))
		for _, p := range entry.Participants {
			rsp.Participants = append(rsp.Participants, respond.ProfileRespond{
				Id:        p.Id,
				Username:  p.Username,
				AvatarUrl: p.AvatarUrl,
				CreatedAt: p.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		if entry.LastMessage != nil {
			rsp.LastMessage = &respond.LastMessageRespond{
				Content:   entry.LastMessage.Content,
				SenderId:  entry.LastMessage.SenderId,
				CreatedAt: entry.LastMessage.CreatedAt.Format("2006-01-02 15:04:05"),
			}
		}
		if entry.LastMessageErr != nil {
			rsp.LastMessageError = "最新消息拉取失败"
		}
		rspList = append(rspList, rsp)
	}
	return rspList, nil
}

// OpenDirect 查找或创建和目标用户的单聊会话，返回会话 id
func (s *conversationService) OpenDirect(ctx context.Context, currentUserId, targetUserId string) (string, error) {
	if currentUserId == targetUserId {
		return "", errorx.New(errorx.CodeInvalidParam, "不能和自己创建会话")
	}
	if _, err := s.repos.Profile.FindById(targetUserId); err != nil {
		if errorx.IsNotFound(err) {
			return "", errorx.New(errorx.CodeUserNotExist, "目标用户不存在")
		}
		zap.L().Error("find target profile error", zap.Error(err))
		return "", errorx.ErrServerBusy
	}
	return s.dir.GetOrCreateDirect(ctx, currentUserId, targetUserId)
}

// Summarize 用 AI 总结整段单聊记录
// 逐行格式为 "Me: xxx"（自己）/ "{对方用户名}: xxx"，对方资料查不到时退化为 "Other"
func (s *conversationService) Summarize(ctx context.Context, conversationId, userId string) (string, error) {
	if err := s.EnsureMember(ctx, conversationId, userId); err != nil {
		return "", err
	}

	messages, err := s.repos.Message.FindByConversationId(conversationId)
	if err != nil {
		zap.L().Error("find messages for summary error", zap.Error(err))
		return "", errorx.ErrServerBusy
	}
	if len(messages) == 0 {
		return "", errorx.New(errorx.CodeInvalidParam, "当前会话没有可总结的消息")
	}

	otherUsername := s.otherUsername(conversationId, userId)
	var sb strings.Builder
	for _, m := range messages {
		if m.SenderId == userId {
			sb.WriteString("Me: ")
		} else {
			sb.WriteString(otherUsername + ": ")
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	return s.ai.SummarizeConversation(ctx, otherUsername, sb.String())
}

// otherUsername 取单聊里对方的用户名，查不到时用 "Other" 兜底
func (s *conversationService) otherUsername(conversationId, userId string) string {
	memberIds, err := s.repos.Participant.FindUserIdsByConversationId(conversationId)
	if err != nil {
		return "Other"
	}
	for _, id := range memberIds {
		if id == userId {
			continue
		}
		profile, err := s.repos.Profile.FindById(id)
		if err != nil {
			zap.L().Warn("find other profile for summary error", zap.String("user_id", id), zap.Error(err))
			return "Other"
		}
		return profile.Username
	}
	return "Other"
}

// EnsureMember 校验用户是否为会话成员
// 消息读写前都要过这一道，防止越权访问别人的会话
func (s *conversationService) EnsureMember(ctx context.Context, conversationId, userId string) error {
	memberIds, err := s.repos.Participant.FindUserIdsByConversationId(conversationId)
	if err != nil {
		zap.L().Error("find conversation members error", zap.Error(err))
		return errorx.ErrServerBusy
	}
	for _, id := range memberIds {
		if id == userId {
			return nil
		}
	}
	return errorx.New(errorx.CodeUnauthorized, "无权访问该会话")
}
