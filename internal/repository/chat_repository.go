package repository

import (
	"aira-go/internal/model"

	"gorm.io/gorm"
)

// ChatRepository 接口定义了聊天记录的持久化操作。
// 每个写操作都是针对单行或单用户行集的原子操作，用户消息与助手回复之间不共享事务。
type ChatRepository interface {
	Create(chat *model.Chat) error
	FindByID(chatID uint) (*model.Chat, error)
	FindByUser(userID uint) ([]model.Chat, error)
	CountByUser(userID uint) (int64, error)
	Update(chat *model.Chat) error
	Delete(chat *model.Chat) error
	DeleteByUser(userID uint) (int64, error)
}

// chatRepository 是 ChatRepository 接口的 GORM 实现。
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Create 插入一条聊天记录。
func (r *chatRepository) Create(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

// FindByID 根据 ID 查找一条聊天记录。
func (r *chatRepository) FindByID(chatID uint) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.First(&chat, chatID).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindByUser 按时间升序返回某用户的全部聊天记录。
// 同一毫秒内插入的行以 ID 作为次序兜底，保证读取顺序稳定。
func (r *chatRepository) FindByUser(userID uint) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.Where("user_id = ?", userID).
		Order("timestamp asc, id asc").
		Find(&chats).Error
	return chats, err
}

// CountByUser 返回某用户的聊天记录总数。
func (r *chatRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Chat{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Update 更新一条已存在的聊天记录。
func (r *chatRepository) Update(chat *model.Chat) error {
	return r.db.Save(chat).Error
}

// Delete 删除一条聊天记录。
func (r *chatRepository) Delete(chat *model.Chat) error {
	return r.db.Delete(chat).Error
}

// DeleteByUser 删除某用户的全部聊天记录，返回删除的行数。空历史删除 0 行，不算错误。
func (r *chatRepository) DeleteByUser(userID uint) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&model.Chat{})
	return result.RowsAffected, result.Error
}
