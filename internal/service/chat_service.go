package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aira-go/internal/model"
	"aira-go/internal/repository"
	"aira-go/pkg/ai"
	"aira-go/pkg/events"
	"aira-go/pkg/log"
	"aira-go/pkg/sentiment"

	"gorm.io/gorm"
)

// SendResult 是一次对话交互的结果。
type SendResult struct {
	Response      string `json:"response"`
	Sentiment     string `json:"sentiment"`
	HistoryLength int64  `json:"history_length"`
}

// ChatService 接口定义了聊天对话与历史管理的业务逻辑。
type ChatService interface {
	SendMessage(ctx context.Context, userID uint, message string) (*SendResult, error)
	CreateMessage(userID uint, message, sender string) (*model.Chat, error)
	History(requesterID, userID uint) ([]model.Chat, error)
	UpdateMessage(requesterID, chatID uint, message string) (*model.Chat, error)
	DeleteMessage(requesterID, chatID uint) error
	ClearHistory(requesterID, userID uint) (int64, error)
}

// chatService 是 ChatService 接口的实现。
type chatService struct {
	chatRepo   repository.ChatRepository
	userRepo   repository.UserRepository
	aiClient   ai.Client
	classifier sentiment.Classifier
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, aiClient ai.Client, classifier sentiment.Classifier) ChatService {
	return &chatService{
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		aiClient:   aiClient,
		classifier: classifier,
	}
}

// SendMessage 执行一次完整的对话流程：
// 校验消息 -> 落库用户消息 -> 请求 AI -> 落库助手回复 -> 返回结果。
// AI 请求失败不会让整个请求失败，客户端总能拿到一条回复文本；
// 但回复落库失败属于存储故障，按处理失败报给调用方。
// 用户消息一旦落库成功，后续任何一步失败都不会把它撤销。
func (s *chatService) SendMessage(ctx context.Context, userID uint, message string) (*SendResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	polarity := s.classifier.Classify(message)

	userChat := &model.Chat{
		UserID:  userID,
		Message: message,
		Sender:  model.SenderUser,
	}
	if err := s.chatRepo.Create(userChat); err != nil {
		return nil, err
	}

	reply := s.aiClient.Generate(ctx, message)
	if reply.Err != "" {
		log.Errorf("AI generate failed for user %d: %s", userID, reply.Err)
	}

	assistantChat := &model.Chat{
		UserID:  userID,
		Message: reply.Text,
		Sender:  model.SenderAssistant,
	}
	if err := s.chatRepo.Create(assistantChat); err != nil {
		// 用户消息已经落库且保留，回复写入失败按存储故障上报
		log.Errorf("failed to persist assistant reply for user %d: %v", userID, err)
		return nil, fmt.Errorf("failed to persist assistant reply: %w", err)
	}

	count, err := s.chatRepo.CountByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chat history: %w", err)
	}

	events.PublishChatExchange(events.ChatExchange{
		UserID:    userID,
		Sentiment: polarity,
		Degraded:  reply.Err != "",
		Timestamp: time.Now(),
	})

	return &SendResult{
		Response:      reply.Text,
		Sentiment:     polarity,
		HistoryLength: count,
	}, nil
}

// CreateMessage 直接插入一条聊天记录，不经过 AI，用于导入或测试数据。
func (s *chatService) CreateMessage(userID uint, message, sender string) (*model.Chat, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if !model.ValidSender(sender) {
		return nil, ErrInvalidSender
	}
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	chat := &model.Chat{
		UserID:  userID,
		Message: message,
		Sender:  sender,
	}
	if err := s.chatRepo.Create(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// History 返回某用户按时间升序排列的全部聊天记录。只能查看自己的历史。
func (s *chatService) History(requesterID, userID uint) ([]model.Chat, error) {
	if requesterID != userID {
		return nil, ErrForbidden
	}
	return s.chatRepo.FindByUser(userID)
}

// UpdateMessage 修改一条聊天记录的内容。
// 记录不存在返回 ErrChatNotFound，存在但不属于请求者返回 ErrForbidden。
func (s *chatService) UpdateMessage(requesterID, chatID uint, message string) (*model.Chat, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if chat.UserID != requesterID {
		return nil, ErrForbidden
	}

	chat.Message = message
	if err := s.chatRepo.Update(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// DeleteMessage 删除一条聊天记录，所有权检查同 UpdateMessage。
func (s *chatService) DeleteMessage(requesterID, chatID uint) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}
	if chat.UserID != requesterID {
		return ErrForbidden
	}
	return s.chatRepo.Delete(chat)
}

// ClearHistory 清空某用户的全部聊天记录，返回删除的行数。
// 清空空历史是幂等操作，返回 0 而不是错误。
func (s *chatService) ClearHistory(requesterID, userID uint) (int64, error) {
	if requesterID != userID {
		return 0, ErrForbidden
	}
	deleted, err := s.chatRepo.DeleteByUser(userID)
	if err != nil {
		return 0, err
	}
	log.Infof("cleared chat history for user %d: %d rows", userID, deleted)
	return deleted, nil
}
