package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casefront/legalchat/backend/internal/model/chat"
	"github.com/casefront/legalchat/backend/internal/realtime"
	"github.com/casefront/legalchat/backend/internal/store"
)

var (
	ErrMissingIdentity = errors.New("chat id and user id are required")
)

// Provider streams AI reply tokens. Implementations must deliver tokens in
// receipt order and must not call onToken after returning.
type Provider interface {
	StreamReply(ctx context.Context, chatID string, history []chat.Message, text string, onToken func(string)) error
	SummarizeFile(ctx context.Context, ownerID, lang, name string, blob []byte, onToken func(string)) error
}

// FileStore is the upload collaborator the submit flow depends on.
type FileStore interface {
	Upload(ownerID, name string, r io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
}

// Attachment is a file handed to Submit alongside (or instead of) text.
type Attachment struct {
	Name   string
	Reader io.Reader
}

// Controller owns the synchronized view of one chat: the timeline, the
// realtime subscription reconciling confirmed rows against optimistic
// stand-ins, the streaming response driver, and the one-shot first-message
// trigger. One controller exists per chat id; the timeline is never shared
// across ids.
type Controller struct {
	chatID string
	userID string
	lang   string

	store    store.ChatStore
	broker   *realtime.Broker
	files    FileStore
	provider Provider

	timeline *Timeline

	mu        sync.Mutex
	loading   bool
	failed    bool
	streaming bool
	loaded    bool
	triggered bool
	sub       *realtime.Subscription

	watchMu  sync.Mutex
	watchers map[int]chan struct{}
	watchSeq int
}

// Config bundles controller dependencies.
type Config struct {
	ChatID   string
	UserID   string
	Lang     string
	Store    store.ChatStore
	Broker   *realtime.Broker
	Files    FileStore
	Provider Provider
}

// NewController builds an unstarted controller with an empty timeline.
func NewController(cfg Config) (*Controller, error) {
	if cfg.ChatID == "" || cfg.UserID == "" {
		return nil, ErrMissingIdentity
	}
	if cfg.Store == nil || cfg.Broker == nil {
		return nil, errors.New("store and broker are required")
	}

	c := &Controller{
		chatID:   cfg.ChatID,
		userID:   cfg.UserID,
		lang:     cfg.Lang,
		store:    cfg.Store,
		broker:   cfg.Broker,
		files:    cfg.Files,
		provider: cfg.Provider,
		timeline: NewTimeline(),
		watchers: make(map[int]chan struct{}),
	}
	c.timeline.onChange = c.notifyWatchers
	return c, nil
}

// Start wires the realtime subscription, performs the one-time full
// historical load, and evaluates the first-message trigger. Safe to call
// again; the load and the trigger each run at most once per controller.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.sub == nil {
		c.sub = c.broker.Subscribe(c.chatID, c.onInsert)
	}
	needLoad := !c.loaded
	c.mu.Unlock()

	if needLoad {
		history, err := c.store.FetchAllMessages(ctx, c.chatID)
		if err != nil {
			return fmt.Errorf("failed to load chat history: %w", err)
		}
		c.timeline.Replace(history)
		c.mu.Lock()
		c.loaded = true
		c.mu.Unlock()
	}

	c.maybeTriggerFirstReply()
	return nil
}

// Close releases the realtime subscription. The timeline stays readable.
func (c *Controller) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// onInsert reconciles a confirmed message delivered by the realtime feed.
func (c *Controller) onInsert(msg chat.Message) {
	c.timeline.Merge(msg)
}

// Messages returns the current rendered order.
func (c *Controller) Messages() []chat.Message {
	return c.timeline.Snapshot()
}

// IsLoading reports whether a response stream is in flight.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Failed reports whether the last submit or response attempt failed.
func (c *Controller) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Submit runs the optimistic append flow:
//
//	upload attachment (if any) -> append pending message -> persist ->
//	reconcile the acknowledged row -> drive the streaming response.
//
// It is a no-op when the input is blank with no attachment or when a
// response is already in flight. Failures roll the pending message back
// and raise the failed flag.
func (c *Controller) Submit(ctx context.Context, text string, file *Attachment) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" && file == nil {
		return nil
	}
	if c.IsLoading() {
		return nil
	}

	var filePath, fileName string
	if file != nil {
		if c.files == nil {
			c.setFailed()
			return errors.New("file uploads are not configured")
		}
		path, err := c.files.Upload(c.userID, file.Name, file.Reader)
		if err != nil {
			c.setFailed()
			return fmt.Errorf("failed to upload attachment: %w", err)
		}
		filePath = path
		fileName = file.Name
	}

	display := trimmed
	if display == "" {
		display = fmt.Sprintf("Uploaded document: %s", fileName)
	}

	pending := chat.NewPendingUserMessage(c.chatID, display, filePath, fileName)
	c.timeline.Append(pending)

	confirmed, err := c.store.PersistMessage(ctx, chat.Message{
		ChatID:   c.chatID,
		Sender:   chat.SenderUser,
		Text:     display,
		FilePath: filePath,
		FileName: fileName,
	})
	if err != nil {
		c.timeline.Remove(pending.ID)
		c.setFailed()
		return fmt.Errorf("failed to persist message: %w", err)
	}

	// The acknowledged row supersedes the pending one right away; the
	// realtime push for the same id is absorbed as a duplicate.
	c.timeline.Merge(confirmed)

	return c.respond(ctx, replyInput{text: trimmed, filePath: filePath, fileName: fileName})
}

func (c *Controller) setFailed() {
	c.mu.Lock()
	c.failed = true
	c.mu.Unlock()
	c.notifyWatchers()
}

// Watch registers a change listener. The returned channel coalesces bursts
// of updates; call the cancel func when done.
func (c *Controller) Watch() (<-chan struct{}, func()) {
	c.watchMu.Lock()
	c.watchSeq++
	id := c.watchSeq
	ch := make(chan struct{}, 1)
	c.watchers[id] = ch
	c.watchMu.Unlock()

	cancel := func() {
		c.watchMu.Lock()
		delete(c.watchers, id)
		c.watchMu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) notifyWatchers() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
