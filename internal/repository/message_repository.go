package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docqa/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateExchange stores a question and its answer atomically, continuing the
// conversation's sequence numbers.
func (r *MessageRepository) CreateExchange(question, answer *model.StoredMessage) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var last struct{ Max int }
		if err := tx.Model(&model.StoredMessage{}).
			Select("COALESCE(MAX(seq), 0) AS max").
			Where("conversation_id = ?", question.ConversationID).
			Scan(&last).Error; err != nil {
			return fmt.Errorf("read message sequence failed: %w", err)
		}
		question.Seq = last.Max + 1
		answer.Seq = last.Max + 2
		if err := tx.Create(question).Error; err != nil {
			return fmt.Errorf("create question message failed: %w", err)
		}
		if err := tx.Create(answer).Error; err != nil {
			return fmt.Errorf("create answer message failed: %w", err)
		}
		return nil
	})
}

func (r *MessageRepository) ListByConversationID(conversationID string) ([]model.StoredMessage, error) {
	var messages []model.StoredMessage
	if err := r.db.Where("conversation_id = ?", conversationID).Order("seq ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}
