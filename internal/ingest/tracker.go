// Package ingest tracks document uploads for display: a simulated progress
// ticker runs while the real upload is outstanding, and only the upload's
// own result moves the task to a terminal state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"docqa/internal/events"
	"docqa/internal/gateway"
	"docqa/internal/model"
	"docqa/internal/pkg/logger"
)

const (
	logModule = "ingest"

	DefaultInterval = 500 * time.Millisecond
	DefaultStep     = 5
	DefaultCap      = 95

	failureMessage = "File upload failed"
)

var (
	ErrNoFile          = errors.New("no file selected")
	ErrUnauthenticated = errors.New("not logged in")
	ErrSuperseded      = errors.New("upload was superseded")
)

type File struct {
	Name    string
	Content io.Reader
}

type Gateway interface {
	UploadDocument(ctx context.Context, token, filename string, content io.Reader) (*gateway.UploadResponse, error)
	ListDocuments(ctx context.Context, token string) ([]gateway.DocumentRecord, error)
}

type TokenSource interface {
	Token() string
}

type Options struct {
	Interval  time.Duration
	Step      int
	Cap       int
	Logger    logger.ILogger
	Publisher events.Publisher
	// OnChange receives every task change of the current upload, in order.
	OnChange func(model.UploadTask)
}

type Tracker struct {
	gw       Gateway
	tokens   TokenSource
	interval time.Duration
	step     int
	cap      int
	log      logger.ILogger
	pub      events.Publisher
	onChange func(model.UploadTask)

	mu        sync.Mutex
	gen       uint64
	task      model.UploadTask
	documents []model.Document

	notifyMu sync.Mutex
}

func NewTracker(gw Gateway, tokens TokenSource, opts Options) *Tracker {
	t := &Tracker{
		gw:       gw,
		tokens:   tokens,
		interval: opts.Interval,
		step:     opts.Step,
		cap:      opts.Cap,
		log:      opts.Logger,
		pub:      opts.Publisher,
		onChange: opts.OnChange,
		task:     model.UploadTask{State: model.UploadPending},
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if t.step <= 0 {
		t.step = DefaultStep
	}
	if t.cap <= 0 || t.cap >= 100 {
		t.cap = DefaultCap
	}
	if t.log == nil {
		t.log = logger.Nop()
	}
	if t.pub == nil {
		t.pub = events.Nop()
	}
	return t
}

// Upload sends f and drives the task to a terminal state. Starting another
// upload, or calling Reset, while this one is outstanding makes this call
// return ErrSuperseded without touching the newer state. The superseded
// request itself is left to finish on its own.
func (t *Tracker) Upload(ctx context.Context, f File) (model.UploadTask, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" || f.Content == nil {
		return model.UploadTask{}, ErrNoFile
	}
	token := t.tokens.Token()
	if token == "" {
		return model.UploadTask{}, ErrUnauthenticated
	}

	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.task = model.UploadTask{FileName: name, State: model.UploadPending}
	task := t.task
	t.mu.Unlock()
	t.notify(gen, task)

	stop := t.startTicker(gen)
	resp, err := t.gw.UploadDocument(ctx, token, name, f.Content)
	stop()

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		t.log.Info(logModule, "discarding superseded upload result", map[string]interface{}{"file": name})
		return model.UploadTask{}, ErrSuperseded
	}
	if err != nil {
		t.task.State = model.UploadError
		t.task.Message = failureMessage
		task = t.task
		t.mu.Unlock()
		t.notify(gen, task)

		t.log.Error(logModule, "upload failed", map[string]interface{}{
			"file":     name,
			"progress": task.Progress,
			"error":    err,
		})
		t.publish(ctx, events.New(events.UploadFailed, name, err.Error()))
		return task, err
	}
	t.task.Progress = 100
	t.task.State = model.UploadSuccess
	t.task.Message = fmt.Sprintf("File \"%s\" uploaded and processed successfully", name)
	task = t.task
	t.mu.Unlock()
	t.notify(gen, task)

	t.log.Info(logModule, "upload succeeded", map[string]interface{}{
		"file":        name,
		"document_id": resp.ID,
		"chunks":      resp.ChunksProcessed,
	})
	t.publish(ctx, events.New(events.UploadSucceeded, name, resp.ID))

	if _, err := t.RefreshDocuments(ctx); err != nil {
		t.log.Warn(logModule, "refresh documents after upload failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return task, nil
}

// Reset discards the current task, leaving it pending at 0. An upload still
// in flight will have its result ignored.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.task = model.UploadTask{State: model.UploadPending}
	task := t.task
	t.mu.Unlock()
	t.notify(gen, task)
}

func (t *Tracker) Snapshot() model.UploadTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.task
}

func (t *Tracker) Documents() []model.Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Document{}, t.documents...)
}

// RefreshDocuments replaces the document list with the server's.
func (t *Tracker) RefreshDocuments(ctx context.Context) ([]model.Document, error) {
	token := t.tokens.Token()
	if token == "" {
		return nil, ErrUnauthenticated
	}
	records, err := t.gw.ListDocuments(ctx, token)
	if err != nil {
		return nil, err
	}

	docs := make([]model.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, model.Document{ID: r.ID, Filename: r.Filename, UploadedAt: r.UploadedAt})
	}

	t.mu.Lock()
	t.documents = docs
	t.mu.Unlock()
	return append([]model.Document{}, docs...), nil
}

func (t *Tracker) startTicker(gen uint64) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !t.advance(gen) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// advance moves simulated progress one step, never past cap. It reports
// false once the ticker has nothing left to drive.
func (t *Tracker) advance(gen uint64) bool {
	t.mu.Lock()
	if t.gen != gen || t.task.State != model.UploadPending {
		t.mu.Unlock()
		return false
	}
	if t.task.Progress >= t.cap {
		t.mu.Unlock()
		return true
	}
	t.task.Progress += t.step
	if t.task.Progress > t.cap {
		t.task.Progress = t.cap
	}
	task := t.task
	t.mu.Unlock()
	t.notify(gen, task)
	return true
}

func (t *Tracker) notify(gen uint64, task model.UploadTask) {
	if t.onChange == nil {
		return
	}
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	current := t.gen == gen
	t.mu.Unlock()
	if current {
		t.onChange(task)
	}
}

func (t *Tracker) publish(ctx context.Context, event events.Event) {
	if err := t.pub.Publish(ctx, event); err != nil {
		t.log.Warn(logModule, "publish event failed", map[string]interface{}{
			"type":  string(event.Type),
			"error": err.Error(),
		})
	}
}
