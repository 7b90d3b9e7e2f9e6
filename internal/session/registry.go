package session

import (
	"context"
	"sync"

	"github.com/casefront/legalchat/backend/internal/realtime"
	"github.com/casefront/legalchat/backend/internal/store"
)

// Deps are the shared collaborators every controller is built from.
type Deps struct {
	Store    store.ChatStore
	Broker   *realtime.Broker
	Files    FileStore
	Provider Provider
	Lang     string
}

// entry holds the one controller slot for a chat id. Construction runs
// under the Once so a chat never starts two controllers, no matter how
// many callers race on first open.
type entry struct {
	once sync.Once
	ctrl *Controller
	err  error
}

// Registry hands out one started controller per chat id. Controllers stay
// alive for the life of the process; Release tears one down explicitly.
type Registry struct {
	mu      sync.Mutex
	deps    Deps
	entries map[string]*entry
}

// NewRegistry creates a registry over the shared dependencies.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:    deps,
		entries: make(map[string]*entry),
	}
}

// Controller returns the controller for chatID, creating and starting it
// on first use. Concurrent first opens of the same chat wait for the one
// creation instead of starting their own; every caller gets the same
// controller.
func (r *Registry) Controller(ctx context.Context, chatID, userID string) (*Controller, error) {
	r.mu.Lock()
	e, ok := r.entries[chatID]
	if !ok {
		e = &entry{}
		r.entries[chatID] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		ctrl, err := NewController(Config{
			ChatID:   chatID,
			UserID:   userID,
			Lang:     r.deps.Lang,
			Store:    r.deps.Store,
			Broker:   r.deps.Broker,
			Files:    r.deps.Files,
			Provider: r.deps.Provider,
		})
		if err != nil {
			e.err = err
			return
		}
		if err := ctrl.Start(ctx); err != nil {
			ctrl.Close()
			e.err = err
			return
		}
		e.ctrl = ctrl
	})

	if e.err != nil {
		// Forget the failed entry so a later open can retry.
		r.mu.Lock()
		if r.entries[chatID] == e {
			delete(r.entries, chatID)
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e.ctrl, nil
}

// Release closes and forgets the controller for chatID, if any.
func (r *Registry) Release(chatID string) {
	r.mu.Lock()
	e, ok := r.entries[chatID]
	delete(r.entries, chatID)
	r.mu.Unlock()
	if ok && e.ctrl != nil {
		e.ctrl.Close()
	}
}

// CloseAll tears down every controller, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range entries {
		if e.ctrl != nil {
			e.ctrl.Close()
		}
	}
}
