package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docqa/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conversation *model.StoredConversation) error {
	if err := r.db.Create(conversation).Error; err != nil {
		return fmt.Errorf("create conversation failed: %w", err)
	}
	return nil
}

// ListByUserID returns the newest conversation first.
func (r *ConversationRepository) ListByUserID(userID string) ([]model.StoredConversation, error) {
	var list []model.StoredConversation
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return list, nil
}

func (r *ConversationRepository) GetByIDAndUserID(id, userID string) (*model.StoredConversation, error) {
	var conversation model.StoredConversation
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation failed: %w", err)
	}
	return &conversation, nil
}
