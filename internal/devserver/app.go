// Package devserver is a reference implementation of the question-answering
// service contract. It stores accounts, document metadata and conversations
// with gorm and answers every question with a deterministic stub.
package devserver

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docqa/internal/config"
	"docqa/internal/model"
	"docqa/internal/pkg/logger"
	"docqa/internal/platform/database"
	"docqa/internal/repository"
)

type App struct {
	Config config.DevServerConfig
	Name   string
	Env    string
	DB     *gorm.DB
	Logger logger.ILogger

	Accounts      *AccountService
	Library       *LibraryService
	Conversations *ConversationService

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, log logger.ILogger) (*App, error) {
	db, err := database.Open(ctx, cfg.DevServer.Database)
	if err != nil {
		return nil, err
	}
	app, err := NewWithDB(db, cfg, log)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return app, nil
}

// NewWithDB wires the services over an already opened database.
func NewWithDB(db *gorm.DB, cfg *config.Config, log logger.ILogger) (*App, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	return &App{
		Config: cfg.DevServer,
		Name:   cfg.App.Name,
		Env:    cfg.App.Env,
		DB:     db,
		Logger: log,
		Accounts: NewAccountService(
			userRepo,
			cfg.DevServer.JWTSecret,
			time.Duration(cfg.DevServer.JWTExpireMinute)*time.Minute,
		),
		Library:       NewLibraryService(docRepo),
		Conversations: NewConversationService(conversationRepo, messageRepo, docRepo),
		StartedAt:     time.Now(),
	}, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.StoredDocument{},
		&model.StoredConversation{},
		&model.StoredMessage{},
	); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	err := database.Close(a.DB)
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return err
}
