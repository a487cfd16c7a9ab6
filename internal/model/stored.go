package model

import "time"

// Records persisted by the reference backend.

type StoredDocument struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;not null;index" json:"user_id"`
	Filename   string    `gorm:"size:256;not null" json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `gorm:"not null;index" json:"uploaded_at"`
}

type StoredConversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

type StoredMessage struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index" json:"conversation_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsUser         bool      `gorm:"not null" json:"is_user"`
	Seq            int       `gorm:"not null" json:"-"`
	Timestamp      time.Time `gorm:"not null" json:"timestamp"`
}
