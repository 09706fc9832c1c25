package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/yataro/chatterbox/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn, enables foreign keys and ensures
// the schema exists. Schema creation is idempotent and never touches
// existing data.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStorageUnavailable, err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// withForeignKeys encodes foreign key enforcement in the DSN. PRAGMA
// foreign_keys is connection-scoped, so issuing it once against the pool
// would leave later pooled connections without enforcement; the DSN
// parameter applies to every connection the pool opens. Cascade delete from
// sessions to messages and the typed SaveMessage failure both rely on it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			user_text TEXT NOT NULL,
			response_text TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction. The transaction is rolled back on any
// exit path that did not commit, so the connection is always released.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateSession inserts a new session and returns it with its generated id.
func (s *SQLiteStore) CreateSession(ctx context.Context) (*domain.Session, error) {
	session := &domain.Session{CreatedAt: time.Now().UTC()}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (created_at) VALUES (?)`, session.CreatedAt)
		if err != nil {
			return err
		}
		session.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by id. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID int64) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM sessions WHERE id = ?`,
		sessionID).Scan(&session.ID, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetOrCreateSession resolves sessionID to an existing session, creating a
// fresh one when the id is absent or dangling. Only an explicitly absent id
// (nil) skips the lookup; id 0 is looked up like any other value.
func (s *SQLiteStore) GetOrCreateSession(ctx context.Context, sessionID *int64) (*domain.Session, error) {
	if sessionID != nil {
		session, err := s.GetSession(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}
	return s.CreateSession(ctx)
}

// SaveMessage appends one turn under sessionID. The timestamp defaults to
// the current UTC time at commit.
func (s *SQLiteStore) SaveMessage(ctx context.Context, sessionID int64, userText, responseText string) (*domain.Message, error) {
	message := &domain.Message{
		SessionID:    sessionID,
		UserText:     userText,
		ResponseText: responseText,
		Timestamp:    time.Now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, user_text, response_text, timestamp) VALUES (?, ?, ?, ?)`,
			message.SessionID, message.UserText, message.ResponseText, message.Timestamp)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: session %d", ErrSessionNotFound, sessionID)
			}
			return err
		}
		message.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// GetSessionHistory returns the session's turns as (user, response) pairs in
// (timestamp, id) order.
func (s *SQLiteStore) GetSessionHistory(ctx context.Context, sessionID int64) ([]domain.Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_text, response_text FROM messages WHERE session_id = ? ORDER BY timestamp ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []domain.Exchange{}
	for rows.Next() {
		var ex domain.Exchange
		if err := rows.Scan(&ex.User, &ex.Response); err != nil {
			return nil, err
		}
		history = append(history, ex)
	}
	return history, rows.Err()
}

// GetSessionMessages returns the full message records for a session in
// history order.
func (s *SQLiteStore) GetSessionMessages(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_text, response_text, timestamp FROM messages WHERE session_id = ? ORDER BY timestamp ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserText, &msg.ResponseText, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListSessions returns all sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.ID, &session.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session; the foreign key cascade removes its
// messages in the same transaction.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: session %d", ErrSessionNotFound, sessionID)
		}
		return nil
	})
}

// isForeignKeyViolation reports whether err is a SQLite foreign key
// constraint failure.
func isForeignKeyViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

var _ Store = (*SQLiteStore)(nil)
