// Package conversation owns the message list of one chat pane: optimistic
// user writes, assistant confirmations and the draft to persisted identity
// transition.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/events"
	"docqa/internal/gateway"
	"docqa/internal/model"
	"docqa/internal/pkg/logger"
)

const logModule = "conversation"

type Phase string

const (
	PhaseEmpty   Phase = "empty"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

type Gateway interface {
	FetchConversation(ctx context.Context, token, conversationID string) ([]gateway.MessageRecord, error)
	Ask(ctx context.Context, token, question, conversationID string) (*gateway.AskResponse, error)
}

// TokenSource yields the current bearer token; the session store satisfies it.
type TokenSource interface {
	Token() string
}

type Options struct {
	Logger    logger.ILogger
	Publisher events.Publisher
	Now       func() time.Time
	NewID     func() string
}

// View is a consistent copy of the controller state for rendering.
type View struct {
	Conversation model.Conversation
	Sources      []string
	Phase        Phase
	Busy         bool
	Input        string
	LastError    error
}

type Controller struct {
	gw     Gateway
	tokens TokenSource
	log    logger.ILogger
	pub    events.Publisher
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	gen      uint64
	phase    Phase
	busy     bool
	id       string
	messages []model.Message
	sources  []string
	input    string
	lastErr  error
}

func NewController(gw Gateway, tokens TokenSource, opts Options) *Controller {
	c := &Controller{
		gw:     gw,
		tokens: tokens,
		log:    opts.Logger,
		pub:    opts.Publisher,
		now:    opts.Now,
		newID:  opts.NewID,
		phase:  PhaseEmpty,
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.pub == nil {
		c.pub = events.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Load opens a conversation. An empty id starts a draft. A later Load
// supersedes an earlier one still in flight.
func (c *Controller) Load(ctx context.Context, conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.busy = false
	c.id = conversationID
	c.messages = nil
	c.sources = nil
	c.lastErr = nil
	if conversationID == "" {
		c.phase = PhaseReady
		c.mu.Unlock()
		return nil
	}
	token := c.tokens.Token()
	if token == "" {
		c.phase = PhaseReady
		c.lastErr = ErrUnauthenticated
		c.mu.Unlock()
		return ErrUnauthenticated
	}
	c.phase = PhaseLoading
	c.mu.Unlock()

	records, err := c.gw.FetchConversation(ctx, token, conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return ErrSuperseded
	}
	c.phase = PhaseReady
	if err != nil {
		c.lastErr = err
		c.log.Error(logModule, "load conversation failed", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err,
		})
		return err
	}

	messages := make([]model.Message, 0, len(records))
	for _, r := range records {
		author := model.AuthorAssistant
		if r.IsUser {
			author = model.AuthorUser
		}
		messages = append(messages, model.Message{
			ID:        r.ID,
			Content:   r.Content,
			Author:    author,
			Timestamp: r.Timestamp,
		})
	}
	c.messages = messages
	return nil
}

// Ask sends a question. The user message is appended before the request is
// issued and stays even when the request fails.
func (c *Controller) Ask(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrBlankQuestion
	}

	c.mu.Lock()
	if c.phase != PhaseReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	token := c.tokens.Token()
	if token == "" {
		c.mu.Unlock()
		return ErrUnauthenticated
	}
	c.busy = true
	gen := c.gen
	conversationID := c.id
	c.messages = append(c.messages, c.message(model.AuthorUser, question))
	c.input = ""
	c.lastErr = nil
	c.mu.Unlock()

	defer c.release(gen)

	resp, err := c.gw.Ask(ctx, token, question, conversationID)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.log.Error(logModule, "ask failed", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err,
		})
		return err
	}

	c.messages = append(c.messages, c.message(model.AuthorAssistant, resp.Answer))
	c.sources = append([]string{}, resp.Sources...)

	created := ""
	switch {
	case resp.ConversationID == "":
	case c.id == "":
		c.id = resp.ConversationID
		created = c.id
	case c.id != resp.ConversationID:
		c.log.Warn(logModule, "server returned a different conversation id, keeping the current one", map[string]interface{}{
			"conversation_id": c.id,
			"returned_id":     resp.ConversationID,
		})
	}
	c.mu.Unlock()

	if created != "" {
		c.publish(ctx, events.New(events.ConversationCreated, created, question))
	}
	return nil
}

// Submit asks with the current input buffer.
func (c *Controller) Submit(ctx context.Context) error {
	return c.Ask(ctx, c.Input())
}

func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Conversation: model.Conversation{
			ID:       c.id,
			Messages: append([]model.Message{}, c.messages...),
		},
		Sources:   append([]string{}, c.sources...),
		Phase:     c.phase,
		Busy:      c.busy,
		Input:     c.input,
		LastError: c.lastErr,
	}
}

func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) release(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.busy = false
	}
	c.mu.Unlock()
}

func (c *Controller) message(author model.Author, content string) model.Message {
	return model.Message{
		ID:        c.newID(),
		Content:   content,
		Author:    author,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}
}

func (c *Controller) publish(ctx context.Context, event events.Event) {
	if err := c.pub.Publish(ctx, event); err != nil {
		c.log.Warn(logModule, "publish event failed", map[string]interface{}{
			"type":  string(event.Type),
			"error": err.Error(),
		})
	}
}
