// Package chat composes generation with persistence: one logical turn from
// the caller's perspective.
package chat

import (
	"context"
	"fmt"

	"github.com/yataro/chatterbox/domain"
	"github.com/yataro/chatterbox/llm"
	"github.com/yataro/chatterbox/store"
)

// Service bridges the persisted history shape and the generation
// collaborator. Both collaborators are injected so either can be substituted
// in tests.
type Service struct {
	store     store.Store
	generator llm.Generator
}

// New creates a chat service.
func New(st store.Store, gen llm.Generator) *Service {
	return &Service{store: st, generator: gen}
}

// Reply delegates to the generation collaborator without any persistence
// side effect, so generation can be exercised without a database.
func (s *Service) Reply(ctx context.Context, message string, history []domain.Exchange) (string, error) {
	reply, err := s.generator.Generate(ctx, message, history)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", llm.ErrEmptyCompletion
	}
	return reply, nil
}

// ReplyAndSave generates a reply and persists the turn under sessionID.
// Persistence happens only after successful generation; a failed generation
// persists nothing. If persistence fails after generation succeeded, the
// generated reply is returned alongside the error rather than discarded —
// the caller decides whether to still surface it.
func (s *Service) ReplyAndSave(ctx context.Context, sessionID int64, message string, history []domain.Exchange) (string, error) {
	reply, err := s.Reply(ctx, message, history)
	if err != nil {
		return "", err
	}

	if _, err := s.store.SaveMessage(ctx, sessionID, message, reply); err != nil {
		return reply, fmt.Errorf("reply generated but not persisted: %w", err)
	}
	return reply, nil
}

// History loads the session's prior turns in order. Missing sessions yield
// an empty history.
func (s *Service) History(ctx context.Context, sessionID int64) ([]domain.Exchange, error) {
	return s.store.GetSessionHistory(ctx, sessionID)
}
