package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/events"
	"docqa/internal/gateway"
	"docqa/internal/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type askCall struct {
	question       string
	conversationID string
}

type askResult struct {
	resp *gateway.AskResponse
	err  error
}

// fakeGateway answers asks from a queue, or blocks on gate when one is set.
type fakeGateway struct {
	mu        sync.Mutex
	asks      []askCall
	fetches   []string
	results   []askResult
	gate      chan askResult
	started   chan struct{}
	history   map[string][]gateway.MessageRecord
	fetchErr  error
	fetchGate chan struct{}
}

func (f *fakeGateway) Ask(ctx context.Context, token, question, conversationID string) (*gateway.AskResponse, error) {
	f.mu.Lock()
	f.asks = append(f.asks, askCall{question: question, conversationID: conversationID})
	gate := f.gate
	var next askResult
	if gate == nil && len(f.results) > 0 {
		next = f.results[0]
		f.results = f.results[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		if f.started != nil {
			f.started <- struct{}{}
		}
		select {
		case next = <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return next.resp, next.err
}

func (f *fakeGateway) FetchConversation(ctx context.Context, token, conversationID string) ([]gateway.MessageRecord, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, conversationID)
	gate := f.fetchGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.history[conversationID], nil
}

func (f *fakeGateway) askCalls() []askCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]askCall{}, f.asks...)
}

func newTestController(t *testing.T, gw Gateway, pub events.Publisher) *Controller {
	t.Helper()
	n := 0
	return NewController(gw, staticToken("tok"), Options{
		Publisher: pub,
		Now:       func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("local-%d", n)
		},
	})
}

func draft(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.Load(context.Background(), ""))
}

func TestAsk_DraftAcquiresID(t *testing.T) {
	gw := &fakeGateway{results: []askResult{{resp: &gateway.AskResponse{
		Answer:         "X is Y",
		Sources:        []string{"doc1.pdf"},
		ConversationID: "c42",
	}}}}
	rec := &events.Recorder{}
	c := newTestController(t, gw, rec)
	draft(t, c)
	assert.Empty(t, c.ConversationID())

	require.NoError(t, c.Ask(context.Background(), "What is X?"))

	view := c.Snapshot()
	assert.Equal(t, "c42", view.Conversation.ID)
	assert.Equal(t, []string{"doc1.pdf"}, view.Sources)
	require.Len(t, view.Conversation.Messages, 2)
	assert.Equal(t, model.Message{ID: "local-1", Content: "What is X?", Author: model.AuthorUser, Timestamp: "2024-05-01T12:00:00Z"}, view.Conversation.Messages[0])
	assert.Equal(t, model.AuthorAssistant, view.Conversation.Messages[1].Author)
	assert.Equal(t, "X is Y", view.Conversation.Messages[1].Content)
	assert.False(t, view.Busy)
	assert.NoError(t, view.LastError)

	require.Len(t, gw.askCalls(), 1)
	assert.Empty(t, gw.askCalls()[0].conversationID, "draft sends no id")

	got := rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.ConversationCreated, got[0].Type)
	assert.Equal(t, "c42", got[0].Subject)
}

func TestAsk_IDIsSetOnce(t *testing.T) {
	gw := &fakeGateway{results: []askResult{
		{resp: &gateway.AskResponse{Answer: "a1", ConversationID: "c42"}},
		{resp: &gateway.AskResponse{Answer: "a2", ConversationID: "c99"}},
		{resp: &gateway.AskResponse{Answer: "a3"}},
	}}
	rec := &events.Recorder{}
	c := newTestController(t, gw, rec)
	draft(t, c)

	require.NoError(t, c.Ask(context.Background(), "q1"))
	require.NoError(t, c.Ask(context.Background(), "q2"))
	require.NoError(t, c.Ask(context.Background(), "q3"))

	assert.Equal(t, "c42", c.ConversationID())
	calls := gw.askCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "", calls[0].conversationID)
	assert.Equal(t, "c42", calls[1].conversationID)
	assert.Equal(t, "c42", calls[2].conversationID)
	assert.Len(t, rec.Events(), 1)
	assert.Len(t, c.Snapshot().Conversation.Messages, 6)
}

func TestAsk_BlankIsRejectedWithoutCall(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(t, gw, nil)
	draft(t, c)

	for _, q := range []string{"", "   ", "\n\t"} {
		err := c.Ask(context.Background(), q)
		assert.ErrorIs(t, err, ErrBlankQuestion)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Empty(t, c.Snapshot().Conversation.Messages)
	assert.Empty(t, gw.askCalls())
}

func TestAsk_UserMessageAppendedBeforeResolution(t *testing.T) {
	gw := &fakeGateway{gate: make(chan askResult), started: make(chan struct{}, 1)}
	c := newTestController(t, gw, nil)
	draft(t, c)
	c.SetInput("What is X?")

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-gw.started

	view := c.Snapshot()
	require.Len(t, view.Conversation.Messages, 1)
	assert.Equal(t, model.AuthorUser, view.Conversation.Messages[0].Author)
	assert.Equal(t, "What is X?", view.Conversation.Messages[0].Content)
	assert.Empty(t, view.Input, "input is cleared before the request resolves")
	assert.True(t, view.Busy)

	gw.gate <- askResult{resp: &gateway.AskResponse{Answer: "ok"}}
	require.NoError(t, <-done)
	assert.False(t, c.Busy())
}

func TestAsk_SecondAskWhileBusyIsRejected(t *testing.T) {
	gw := &fakeGateway{gate: make(chan askResult), started: make(chan struct{}, 1)}
	c := newTestController(t, gw, nil)
	draft(t, c)

	done := make(chan error, 1)
	go func() { done <- c.Ask(context.Background(), "first") }()
	<-gw.started

	assert.ErrorIs(t, c.Ask(context.Background(), "second"), ErrBusy)
	assert.ErrorIs(t, c.Ask(context.Background(), "third"), ErrBusy)
	assert.Len(t, gw.askCalls(), 1)

	gw.gate <- askResult{resp: &gateway.AskResponse{Answer: "reply"}}
	require.NoError(t, <-done)

	msgs := c.Snapshot().Conversation.Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "reply", msgs[1].Content)
}

func TestAsk_FailureKeepsOnlyUserMessage(t *testing.T) {
	failure := &gateway.RequestFailedError{Endpoint: gateway.EndpointAsk, Status: 500}
	gw := &fakeGateway{results: []askResult{
		{resp: &gateway.AskResponse{Answer: "first answer", Sources: []string{"a.pdf"}}},
		{err: failure},
	}}
	c := newTestController(t, gw, nil)
	draft(t, c)
	require.NoError(t, c.Ask(context.Background(), "one"))
	before := len(c.Snapshot().Conversation.Messages)

	err := c.Ask(context.Background(), "two")
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrRequestFailed)

	view := c.Snapshot()
	assert.Len(t, view.Conversation.Messages, before+1)
	assert.Equal(t, "two", view.Conversation.Messages[before].Content)
	assert.Equal(t, model.AuthorUser, view.Conversation.Messages[before].Author)
	assert.False(t, view.Busy, "busy is released on failure")
	assert.ErrorIs(t, view.LastError, gateway.ErrRequestFailed)
	assert.Equal(t, []string{"a.pdf"}, view.Sources, "sources only change on success")
	assert.Empty(t, view.Conversation.ID)
}

func TestAsk_ConfirmationNeverArrives(t *testing.T) {
	gw := &fakeGateway{gate: make(chan askResult), started: make(chan struct{}, 1)}
	c := newTestController(t, gw, nil)
	draft(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Ask(ctx, "hello?") }()
	<-gw.started

	// While pending the provisional write is visible and the pane is busy.
	view := c.Snapshot()
	assert.Len(t, view.Conversation.Messages, 1)
	assert.True(t, view.Busy)
	assert.ErrorIs(t, c.Ask(context.Background(), "again"), ErrBusy)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	view = c.Snapshot()
	assert.Len(t, view.Conversation.Messages, 1, "the user message is never rolled back")
	assert.False(t, view.Busy)
	assert.Empty(t, view.Conversation.ID)
}

func TestAsk_NilSourcesBecomeEmpty(t *testing.T) {
	gw := &fakeGateway{results: []askResult{
		{resp: &gateway.AskResponse{Answer: "a", Sources: []string{"x.pdf"}}},
		{resp: &gateway.AskResponse{Answer: "b"}},
	}}
	c := newTestController(t, gw, nil)
	draft(t, c)
	require.NoError(t, c.Ask(context.Background(), "q1"))
	require.NoError(t, c.Ask(context.Background(), "q2"))

	sources := c.Snapshot().Sources
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}

func TestAsk_Preconditions(t *testing.T) {
	gw := &fakeGateway{}

	c := newTestController(t, gw, nil)
	assert.ErrorIs(t, c.Ask(context.Background(), "q"), ErrNotReady, "nothing loaded yet")

	anon := NewController(gw, staticToken(""), Options{})
	draft(t, anon)
	assert.ErrorIs(t, anon.Ask(context.Background(), "q"), ErrUnauthenticated)
	assert.Empty(t, anon.Snapshot().Conversation.Messages)
	assert.Empty(t, gw.askCalls())
}

func TestLoad_ReplacesMessagesFromServer(t *testing.T) {
	gw := &fakeGateway{history: map[string][]gateway.MessageRecord{
		"c7": {
			{ID: "m1", Content: "hi", IsUser: true, Timestamp: "2024-01-01T00:00:00Z"},
			{ID: "m2", Content: "hello", IsUser: false, Timestamp: "2024-01-01T00:00:01Z"},
		},
	}}
	c := newTestController(t, gw, nil)

	require.NoError(t, c.Load(context.Background(), "c7"))

	view := c.Snapshot()
	assert.Equal(t, PhaseReady, view.Phase)
	assert.Equal(t, "c7", view.Conversation.ID)
	require.Len(t, view.Conversation.Messages, 2)
	assert.Equal(t, model.AuthorUser, view.Conversation.Messages[0].Author)
	assert.Equal(t, model.AuthorAssistant, view.Conversation.Messages[1].Author)
	assert.Equal(t, "m2", view.Conversation.Messages[1].ID)
}

func TestLoad_FailureLeavesPaneEmpty(t *testing.T) {
	failure := &gateway.RequestFailedError{Endpoint: gateway.EndpointFetchConversation, Status: 404, Detail: "Conversation not found"}
	gw := &fakeGateway{fetchErr: failure}
	c := newTestController(t, gw, nil)

	err := c.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrRequestFailed))

	view := c.Snapshot()
	assert.Equal(t, PhaseReady, view.Phase)
	assert.Empty(t, view.Conversation.Messages)
	assert.ErrorIs(t, view.LastError, gateway.ErrRequestFailed)
}

func TestLoad_StaleResultIsDiscarded(t *testing.T) {
	gw := &fakeGateway{
		fetchGate: make(chan struct{}),
		history: map[string][]gateway.MessageRecord{
			"old": {{ID: "m1", Content: "old message", IsUser: true}},
		},
	}
	c := newTestController(t, gw, nil)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), "old") }()
	require.Eventually(t, func() bool { return c.Snapshot().Phase == PhaseLoading }, time.Second, time.Millisecond)

	require.NoError(t, c.Load(context.Background(), ""))
	close(gw.fetchGate)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	view := c.Snapshot()
	assert.Empty(t, view.Conversation.ID)
	assert.Empty(t, view.Conversation.Messages)
	assert.Equal(t, PhaseReady, view.Phase)
}

func TestAsk_ReloadDuringFlightDiscardsReply(t *testing.T) {
	gw := &fakeGateway{gate: make(chan askResult), started: make(chan struct{}, 1)}
	c := newTestController(t, gw, nil)
	draft(t, c)

	done := make(chan error, 1)
	go func() { done <- c.Ask(context.Background(), "q") }()
	<-gw.started

	require.NoError(t, c.Load(context.Background(), ""))
	gw.gate <- askResult{resp: &gateway.AskResponse{Answer: "late", ConversationID: "c1"}}
	assert.ErrorIs(t, <-done, ErrSuperseded)

	view := c.Snapshot()
	assert.Empty(t, view.Conversation.Messages)
	assert.Empty(t, view.Conversation.ID)
	assert.False(t, view.Busy)
}
