// Package store defines the session repository interface and its SQLite
// implementation.
package store

import (
	"context"
	"errors"

	"github.com/yataro/chatterbox/domain"
)

var (
	// ErrStorageUnavailable is returned when the durable medium cannot be
	// opened or reached. It is never retried at this layer.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSessionNotFound is returned when a write references a session that
	// does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// Store is the only component permitted to construct or query session and
// message records. Every operation runs in its own transaction; no scope is
// held open across a call boundary.
type Store interface {
	// CreateSession inserts a new session stamped with the current UTC time
	// and returns it with the storage-assigned id populated.
	CreateSession(ctx context.Context) (*domain.Session, error)

	// GetSession returns the session with the given id, or (nil, nil) if it
	// does not exist.
	GetSession(ctx context.Context, sessionID int64) (*domain.Session, error)

	// GetOrCreateSession resolves an optional session id. A nil id, or an id
	// that no longer resolves, yields a freshly created session. This is the
	// sole recovery path for dangling session references and never fails
	// with ErrSessionNotFound.
	GetOrCreateSession(ctx context.Context, sessionID *int64) (*domain.Session, error)

	// SaveMessage appends one turn under the given session. Referencing a
	// missing session fails with ErrSessionNotFound and inserts nothing.
	SaveMessage(ctx context.Context, sessionID int64, userText, responseText string) (*domain.Message, error)

	// GetSessionHistory returns all turns for a session ordered by
	// (timestamp, id) ascending. A missing or empty session yields an empty
	// slice, not an error.
	GetSessionHistory(ctx context.Context, sessionID int64) ([]domain.Exchange, error)

	// GetSessionMessages returns the full message records for a session in
	// history order.
	GetSessionMessages(ctx context.Context, sessionID int64) ([]domain.Message, error)

	// ListSessions returns all sessions, most recently created first.
	ListSessions(ctx context.Context) ([]domain.Session, error)

	// DeleteSession removes a session and, by cascade, all of its messages.
	DeleteSession(ctx context.Context, sessionID int64) error

	// Lifecycle
	Close() error
}
