package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"aira-go/internal/model"
	"aira-go/internal/repository"
	"aira-go/pkg/database"
	"aira-go/pkg/hash"
	"aira-go/pkg/log"
	"aira-go/pkg/token"

	"gorm.io/gorm"
)

// blacklistKeyPrefix 是登出 token 在 Redis 中的键前缀。
const blacklistKeyPrefix = "blacklist:"

// UserService 接口定义了用户账号相关的业务逻辑。
type UserService interface {
	Register(name, email, password string) (*model.User, error)
	Login(email, password string) (string, *model.User, error)
	Logout(tokenString string, claims *token.CustomClaims) error
	GetByID(userID uint) (*model.User, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

// Register 注册一个新用户。邮箱统一转为小写后判重，密码以 bcrypt 哈希存储。
func (s *userService) Register(name, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.userRepo.FindByEmail(email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	passwordHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	log.Infof("user registered: id=%d email=%s", user.ID, user.Email)
	return user, nil
}

// Login 校验邮箱和密码，成功后签发 access token。
// 邮箱不存在与密码错误返回同一个错误，不向调用方泄露账号是否存在。
func (s *userService) Login(email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !hash.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}

	log.Infof("user logged in: id=%d", user.ID)
	return accessToken, user, nil
}

// Logout 将 token 加入 Redis 黑名单，有效期为 token 的剩余寿命。
// 未配置 Redis 时登出只在客户端侧生效，这里直接返回成功。
func (s *userService) Logout(tokenString string, claims *token.CustomClaims) error {
	if database.RDB == nil {
		return nil
	}

	ttl := time.Hour
	if claims != nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		// token 已经过期，无需拉黑
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return database.RDB.Set(ctx, blacklistKeyPrefix+tokenString, "1", ttl).Err()
}

// GetByID 根据 ID 获取用户，不存在时返回 ErrUserNotFound。
func (s *userService) GetByID(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
