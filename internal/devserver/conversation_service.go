package devserver

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docqa/internal/model"
	"docqa/internal/repository"
)

const (
	titleMaxRunes = 50
	maxSources    = 5
)

// ConversationService answers questions with a deterministic stub and keeps
// the resulting history the way a real backend would.
type ConversationService struct {
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	docRepo          *repository.DocumentRepository
	now              func() time.Time
}

type AskInput struct {
	UserID         string
	Query          string
	ConversationID string
}

type AskResult struct {
	Answer         string
	Sources        []string
	ConversationID string
}

func NewConversationService(
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	docRepo *repository.DocumentRepository,
) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		docRepo:          docRepo,
		now:              time.Now,
	}
}

func (s *ConversationService) Ask(input AskInput) (*AskResult, error) {
	query := strings.TrimSpace(input.Query)
	if input.UserID == "" || query == "" {
		return nil, ErrInvalidInput
	}

	docs, err := s.docRepo.ListByUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	conversationID := strings.TrimSpace(input.ConversationID)
	if conversationID == "" {
		conversation := &model.StoredConversation{
			ID:        uuid.NewString(),
			UserID:    input.UserID,
			Title:     truncateRunes(query, titleMaxRunes),
			CreatedAt: s.now().UTC(),
		}
		if err := s.conversationRepo.Create(conversation); err != nil {
			return nil, err
		}
		conversationID = conversation.ID
	} else {
		conversation, err := s.conversationRepo.GetByIDAndUserID(conversationID, input.UserID)
		if err != nil {
			return nil, err
		}
		if conversation == nil {
			return nil, ErrConversationMissing
		}
	}

	sources := make([]string, 0, maxSources)
	for i := len(docs) - 1; i >= 0 && len(sources) < maxSources; i-- {
		sources = append(sources, docs[i].Filename)
	}
	answer := fmt.Sprintf("This development server has no answer engine. Your question %q was matched against %d document(s).", query, len(docs))

	now := s.now().UTC()
	question := &model.StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Content:        query,
		IsUser:         true,
		Timestamp:      now,
	}
	reply := &model.StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Content:        answer,
		IsUser:         false,
		Timestamp:      now,
	}
	if err := s.messageRepo.CreateExchange(question, reply); err != nil {
		return nil, err
	}

	return &AskResult{Answer: answer, Sources: sources, ConversationID: conversationID}, nil
}

func (s *ConversationService) List(userID string) ([]model.StoredConversation, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.ListByUserID(userID)
}

func (s *ConversationService) History(userID, conversationID string) ([]model.StoredMessage, error) {
	if userID == "" || conversationID == "" {
		return nil, ErrInvalidInput
	}
	conversation, err := s.conversationRepo.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationMissing
	}
	return s.messageRepo.ListByConversationID(conversationID)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
