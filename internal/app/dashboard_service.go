package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"docqa/internal/gateway"
	"docqa/internal/model"
)

type DocumentRefresher interface {
	RefreshDocuments(ctx context.Context) ([]model.Document, error)
}

type ConversationLister interface {
	ListConversations(ctx context.Context, token string) ([]gateway.ConversationRecord, error)
}

type TokenSource interface {
	Token() string
}

// Dashboard is what the landing screen shows: the user's documents and
// conversation history, newest conversation first.
type Dashboard struct {
	Documents     []model.Document
	Conversations []model.ConversationSummary
}

type DashboardService struct {
	documents     DocumentRefresher
	conversations ConversationLister
	tokens        TokenSource
}

func NewDashboardService(documents DocumentRefresher, conversations ConversationLister, tokens TokenSource) *DashboardService {
	return &DashboardService{documents: documents, conversations: conversations, tokens: tokens}
}

// Load fetches both lists concurrently. Either failure fails the load.
func (s *DashboardService) Load(ctx context.Context) (*Dashboard, error) {
	var dash Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := s.documents.RefreshDocuments(gctx)
		if err != nil {
			return err
		}
		dash.Documents = docs
		return nil
	})
	g.Go(func() error {
		conversations, err := s.Conversations(gctx)
		if err != nil {
			return err
		}
		dash.Conversations = conversations
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dash, nil
}

func (s *DashboardService) Conversations(ctx context.Context) ([]model.ConversationSummary, error) {
	token := s.tokens.Token()
	if token == "" {
		return nil, ErrUnauthenticated
	}
	records, err := s.conversations.ListConversations(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]model.ConversationSummary, 0, len(records))
	for _, r := range records {
		out = append(out, model.ConversationSummary{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt})
	}
	return out, nil
}
