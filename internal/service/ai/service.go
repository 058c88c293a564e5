// Package ai 内置 AI 助手业务逻辑
// 通过 OpenAI 兼容接口调用 Groq，对话记录按用户落盘
// 未配置 GROQ_API_KEY 时服务降级：助手相关操作一律报错，其余功能不受影响
package ai

import (
	"context"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"chatsy/internal/config"
	"chatsy/pkg/constants"
	"chatsy/pkg/errorx"
)

// 总结请求的固定提示词和回复前缀
const (
	summaryPrompt = "Please provide a concise summary of the following conversation:\n\n"
	summaryPrefix = "📝 **Chat Summary**\n\n"
)

// aiService AI 助手业务逻辑实现
// llm 为 nil 表示密钥缺失，处于降级状态
type aiService struct {
	llm         llms.Model
	transcripts *transcriptStore
}

// NewAIService 构造函数
// 密钥缺失不算致命错误，返回降级实例
func NewAIService(cfg config.AIConfig) *aiService {
	svc := &aiService{transcripts: newTranscriptStore(cfg.TranscriptPath)}
	if cfg.APIKey == "" {
		zap.L().Warn("GROQ_API_KEY not set, ai assistant disabled")
		return svc
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		zap.L().Error("init openai client error", zap.Error(err))
		return svc
	}
	svc.llm = llm
	return svc
}

// SendMessage 向助手发送一条消息并返回回复
// 上下文只带最近 AI_CONTEXT_TURNS 轮，控制 token 消耗
func (a *aiService) SendMessage(ctx context.Context, userId, content string) (*Turn, error) {
	if a.llm == nil {
		return nil, errorx.ErrAIKeyMissing
	}

	turns := a.transcripts.Load(userId)
	turns = append(turns, Turn{
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now().Format("2006-01-02 15:04:05"),
	})

	window := turns
	if len(window) > constants.AI_CONTEXT_TURNS {
		window = window[len(window)-constants.AI_CONTEXT_TURNS:]
	}
	messages := make([]llms.MessageContent, 0, len(window))
	for _, turn := range window {
		role := schema.ChatMessageTypeHuman
		if turn.Role == RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}

	resp, err := a.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1024),
	)
	if err != nil {
		zap.L().Error("generate content error", zap.Error(err))
		return nil, errorx.New(errorx.CodeAIError, "AI 服务暂时不可用")
	}
	if len(resp.Choices) == 0 {
		return nil, errorx.New(errorx.CodeAIError, "AI 服务暂时不可用")
	}

	reply := Turn{
		Role:      RoleAssistant,
		Content:   resp.Choices[0].Content,
		CreatedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	turns = append(turns, reply)
	a.transcripts.Save(userId, turns)

	return &reply, nil
}

// Summarize 总结当前对话并把总结追加为助手的一轮回复
func (a *aiService) Summarize(ctx context.Context, userId string) (*Turn, error) {
	if a.llm == nil {
		return nil, errorx.ErrAIKeyMissing
	}

	turns := a.transcripts.Load(userId)
	if len(turns) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "当前没有可总结的对话")
	}

	var sb strings.Builder
	for _, turn := range turns {
		if turn.Role == RoleAssistant {
			sb.WriteString("AI: ")
		} else {
			sb.WriteString("User: ")
		}
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, a.llm, summaryPrompt+sb.String(),
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1024),
	)
	if err != nil {
		zap.L().Error("generate summary error", zap.Error(err))
		return nil, errorx.New(errorx.CodeAIError, "AI 服务暂时不可用")
	}

	reply := Turn{
		Role:      RoleAssistant,
		Content:   summaryPrefix + completion,
		CreatedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	turns = append(turns, reply)
	a.transcripts.Save(userId, turns)

	return &reply, nil
}

// SummarizeConversation 总结一段单聊记录
// conversationText 为 "Me: xxx" / "{对方用户名}: xxx" 逐行拼好的文本，
// 结果直接返回给调用方，不写入任何人的助手对话记录
func (a *aiService) SummarizeConversation(ctx context.Context, otherUsername, conversationText string) (string, error) {
	if a.llm == nil {
		return "", errorx.ErrAIKeyMissing
	}

	prompt := "Please provide a concise summary of the following conversation between Me and " +
		otherUsername + ":\n\n" + conversationText
	completion, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1024),
	)
	if err != nil {
		zap.L().Error("generate conversation summary error", zap.Error(err))
		return "", errorx.New(errorx.CodeAIError, "AI 服务暂时不可用")
	}
	return completion, nil
}

// History 返回用户与助手的完整对话记录
func (a *aiService) History(userId string) ([]Turn, error) {
	turns := a.transcripts.Load(userId)
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}

// Clear 清空用户与助手的对话记录
func (a *aiService) Clear(userId string) error {
	a.transcripts.Clear(userId)
	return nil
}
