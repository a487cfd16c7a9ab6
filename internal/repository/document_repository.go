package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docqa/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.StoredDocument) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// ListByUserID returns the user's documents in upload order.
func (r *DocumentRepository) ListByUserID(userID string) ([]model.StoredDocument, error) {
	var list []model.StoredDocument
	if err := r.db.Where("user_id = ?", userID).Order("uploaded_at ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) CountByUserID(userID string) (int64, error) {
	var n int64
	if err := r.db.Model(&model.StoredDocument{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return n, nil
}
