// Package session maps external UI-context handles to durable session ids.
// A context (one browser tab, one interactive client) is bound to exactly
// one session, lazily, and never rebound.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yataro/chatterbox/store"
)

// Binder holds the UNBOUND -> BOUND transition per UI context. Bindings live
// for the process lifetime; the durable record is the session itself.
type Binder struct {
	store store.Store

	mu       sync.Mutex
	bindings map[string]int64
}

// NewBinder creates a binder backed by st.
func NewBinder(st store.Store) *Binder {
	return &Binder{
		store:    st,
		bindings: make(map[string]int64),
	}
}

// NewContextID returns a fresh opaque handle for a UI context. The UI holds
// it for the context's lifetime and passes it back on every turn.
func NewContextID() string {
	return "ctx_" + uuid.NewString()
}

// Bind resolves contextID to its session id, creating the session on first
// contact. Repeat calls with the same handle return the same id without
// touching storage.
func (b *Binder) Bind(ctx context.Context, contextID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.bindings[contextID]; ok {
		return id, nil
	}

	session, err := b.store.CreateSession(ctx)
	if err != nil {
		return 0, err
	}
	b.bindings[contextID] = session.ID
	return session.ID, nil
}
