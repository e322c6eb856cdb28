package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"aira-go/internal/config"
	"aira-go/internal/model"
	"aira-go/internal/repository"
	"aira-go/pkg/ai"
	"aira-go/pkg/log"
	"aira-go/pkg/sentiment"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	tokenpkg "aira-go/pkg/token"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// openTestDB 打开一个内存 SQLite 库并建表，仅用于测试。
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	// 内存库绑定在单个连接上，池子必须收紧到一条连接
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.Chat{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

// newTestEnv 搭建一套完整的业务层：内存 SQLite + 本地回声 AI + 真实情感打分。
func newTestEnv(t *testing.T) (UserService, ChatService) {
	t.Helper()
	db := openTestDB(t)

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	jwtManager := tokenpkg.NewJWTManager("test-secret", 1)

	// 未配置 key 和 url，AI 客户端走本地回声，不发任何网络请求
	aiClient := ai.NewClient(config.AIConfig{})

	userSvc := NewUserService(userRepo, jwtManager)
	chatSvc := NewChatService(chatRepo, userRepo, aiClient, sentiment.New())
	return userSvc, chatSvc
}

func registerTestUser(t *testing.T, svc UserService, email string) *model.User {
	t.Helper()
	user, err := svc.Register("Jane", email, "password123")
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	userSvc, _ := newTestEnv(t)

	user := registerTestUser(t, userSvc, "Jane@Example.com")
	if user.Email != "jane@example.com" {
		t.Errorf("stored email = %q, want lowercased %q", user.Email, "jane@example.com")
	}
	if user.PasswordHash == "password123" {
		t.Error("password stored in plain text")
	}

	// 邮箱判重不区分大小写
	if _, err := userSvc.Register("Jane", "JANE@EXAMPLE.COM", "other"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register error = %v, want ErrEmailTaken", err)
	}

	accessToken, loggedIn, err := userSvc.Login("jane@example.com", "password123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if accessToken == "" {
		t.Error("Login returned empty token")
	}
	if loggedIn.ID != user.ID {
		t.Errorf("logged in user ID = %d, want %d", loggedIn.ID, user.ID)
	}

	if _, _, err := userSvc.Login("jane@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := userSvc.Login("nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestGetByID(t *testing.T) {
	userSvc, _ := newTestEnv(t)
	user := registerTestUser(t, userSvc, "jane@example.com")

	got, err := userSvc.GetByID(user.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.Email != user.Email {
		t.Errorf("got.Email = %q, want %q", got.Email, user.Email)
	}

	if _, err := userSvc.GetByID(9999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user error = %v, want ErrUserNotFound", err)
	}
}

func TestSendMessageLocalEcho(t *testing.T) {
	userSvc, chatSvc := newTestEnv(t)
	user := registerTestUser(t, userSvc, "jane@example.com")

	result, err := chatSvc.SendMessage(context.Background(), user.ID, "hello")
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if result.Response != "I heard: hello" {
		t.Errorf("Response = %q, want %q", result.Response, "I heard: hello")
	}
	if result.Sentiment != sentiment.Neutral {
		t.Errorf("Sentiment = %q, want %q", result.Sentiment, sentiment.Neutral)
	}
	if result.HistoryLength != 2 {
		t.Errorf("HistoryLength = %d, want 2", result.HistoryLength)
	}

	// 两条记录按用户消息在前、助手回复在后的顺序落库
	history, err := chatSvc.History(user.ID, user.ID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].Sender != model.SenderUser || history[0].Message != "hello" {
		t.Errorf("history[0] = %s/%q, want user/hello", history[0].Sender, history[0].Message)
	}
	if history[1].Sender != model.SenderAssistant || history[1].Message != "I heard: hello" {
		t.Errorf("history[1] = %s/%q, want assistant reply", history[1].Sender, history[1].Message)
	}
}

func TestSendMessageValidation(t *testing.T) {
	userSvc, chatSvc := newTestEnv(t)
	user := registerTestUser(t, userSvc, "jane@example.com")

	if _, err := chatSvc.SendMessage(context.Background(), user.ID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank message error = %v, want ErrEmptyMessage", err)
	}
	// 校验失败的消息不应落库
	history, err := chatSvc.History(user.ID, user.ID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("len(history) = %d after rejected message, want 0", len(history))
	}

	if _, err := chatSvc.SendMessage(context.Background(), 9999, "hello"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
}

// flakyChatRepo 在第 failCall 次 Create 时返回错误，其余操作透传给真实实现。
type flakyChatRepo struct {
	repository.ChatRepository
	calls    int
	failCall int
}

func (r *flakyChatRepo) Create(chat *model.Chat) error {
	r.calls++
	if r.calls == r.failCall {
		return errors.New("disk full")
	}
	return r.ChatRepository.Create(chat)
}

func TestSendMessageReplyPersistenceFailure(t *testing.T) {
	db := openTestDB(t)
	userRepo := repository.NewUserRepository(db)
	chatRepo := &flakyChatRepo{
		ChatRepository: repository.NewChatRepository(db),
		failCall:       2, // 用户消息写入成功，助手回复写入失败
	}
	userSvc := NewUserService(userRepo, tokenpkg.NewJWTManager("test-secret", 1))
	chatSvc := NewChatService(chatRepo, userRepo, ai.NewClient(config.AIConfig{}), sentiment.New())
	user := registerTestUser(t, userSvc, "jane@example.com")

	result, err := chatSvc.SendMessage(context.Background(), user.ID, "hello")
	if err == nil {
		t.Fatalf("SendMessage = %+v, want error when reply persistence fails", result)
	}
	// 存储故障不走任何业务哨兵错误，处理器会映射为 500
	for _, sentinel := range []error{ErrEmptyMessage, ErrUserNotFound, ErrForbidden, ErrChatNotFound} {
		if errors.Is(err, sentinel) {
			t.Errorf("persistence failure wrongly mapped to %v", sentinel)
		}
	}

	// 用户消息保留，不随失败回滚
	history, err := chatSvc.History(user.ID, user.ID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1 (user row kept)", len(history))
	}
	if history[0].Sender != model.SenderUser || history[0].Message != "hello" {
		t.Errorf("history[0] = %s/%q, want the surviving user message", history[0].Sender, history[0].Message)
	}
}

func TestCreateMessage(t *testing.T) {
	userSvc, chatSvc := newTestEnv(t)
	user := registerTestUser(t, userSvc, "jane@example.com")

	chat, err := chatSvc.CreateMessage(user.ID, "imported", model.SenderAssistant)
	if err != nil {
		t.Fatalf("CreateMessage returned error: %v", err)
	}
	if chat.ID == 0 {
		t.Error("created chat has zero ID")
	}

	if _, err := chatSvc.CreateMessage(user.ID, "x", "robot"); !errors.Is(err, ErrInvalidSender) {
		t.Errorf("invalid sender error = %v, want ErrInvalidSender", err)
	}
	if _, err := chatSvc.CreateMessage(user.ID, "", model.SenderUser); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty message error = %v, want ErrEmptyMessage", err)
	}
	if _, err := chatSvc.CreateMessage(9999, "x", model.SenderUser); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
}

func TestHistoryOwnership(t *testing.T) {
	userSvc, chatSvc := newTestEnv(t)
	jane := registerTestUser(t, userSvc, "jane@example.com")
	eve := registerTestUser(t, userSvc, "eve@example.com")

	if _, err := chatSvc.History(eve.ID, jane.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-user history error = %v, want ErrForbidden", err)
	}
}

func TestUpdateAndDeleteMessage(t *testing.T) {
	userSvc, chatSvc := newTestEnv(t)
	jane := registerTestUser(t, userSvc, "jane@example.com")
	eve := registerTestUser(t, userSvc, "eve@example.com")

	chat, err := chatSvc.CreateMessage(jane.ID, "original", model.SenderUser)
	if err != nil {
		t.Fatalf("CreateMessage returned error: %v", err)
	}

	// 记录不存在时优先报 not found，即便请求者也无权访问
	if _, err := chatSvc.UpdateMessage(eve.ID, 9999, "x"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("missing chat error = %v, want ErrChatNotFound", err)
	}
	if _, err := chatSvc.UpdateMessage(eve.ID, chat.ID, "hijacked"); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-user update error = %v, want ErrForbidden", err)
	}

	updated, err := chatSvc.UpdateMessage(jane.ID, chat.ID, "edited")
	if err != nil {
		t.Fatalf("UpdateMessage returned error: %v", err)
	}
	if updated.Message != "edited" {
		t.Errorf("updated.Message = %q, want %q", updated.Message, "edited")
	}

	if err := chatSvc.DeleteMessage(eve.ID, chat.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-user delete error = %v, want ErrForbidden", err)
	}
	if err := chatSvc.DeleteMessage(jane.ID, chat.ID); err != nil {
		t.Fatalf("DeleteMessage returned error: %v", err)
	}
	if err := chatSvc.DeleteMessage(jane.ID, chat.ID); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("repeated delete error = %v, want ErrChatNotFound", err)
	}
}

func TestClearHistory(t *testing.T) {
	userSvc, chatSvc := newTestEnv(t)
	jane := registerTestUser(t, userSvc, "jane@example.com")
	eve := registerTestUser(t, userSvc, "eve@example.com")

	for i := 0; i < 3; i++ {
		if _, err := chatSvc.CreateMessage(jane.ID, "m", model.SenderUser); err != nil {
			t.Fatalf("CreateMessage returned error: %v", err)
		}
	}

	if _, err := chatSvc.ClearHistory(eve.ID, jane.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-user clear error = %v, want ErrForbidden", err)
	}

	deleted, err := chatSvc.ClearHistory(jane.ID, jane.ID)
	if err != nil {
		t.Fatalf("ClearHistory returned error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	deleted, err = chatSvc.ClearHistory(jane.ID, jane.ID)
	if err != nil {
		t.Fatalf("repeated ClearHistory returned error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("repeated clear deleted = %d, want 0", deleted)
	}
}
