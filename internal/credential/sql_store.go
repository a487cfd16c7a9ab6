package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docqa/internal/model"
)

type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the credentials table and returns the store.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&model.Credential{}); err != nil {
		return nil, fmt.Errorf("auto migrate credentials failed: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var rec model.Credential
	if err := s.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query credential failed: %w", err)
	}
	return rec.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	rec := model.Credential{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert credential failed: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where(map[string]interface{}{"key": keys}).Delete(&model.Credential{}).Error; err != nil {
		return fmt.Errorf("delete credentials failed: %w", err)
	}
	return nil
}
