package model

import "time"

// 聊天记录的 sender 取值。
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Chat 对应数据库中的 'chats' 表，每行是用户或助手的一条消息。
// 历史记录按 Timestamp 升序读取。
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Sender    string    `gorm:"type:varchar(16);not null" json:"sender"`
	Timestamp time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Chat) TableName() string {
	return "chats"
}

// ValidSender 判断 sender 是否为合法取值。
func ValidSender(s string) bool {
	return s == SenderUser || s == SenderAssistant
}
