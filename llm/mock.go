package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/yataro/chatterbox/domain"
)

// MockGenerator is a deterministic Generator for tests and offline runs.
type MockGenerator struct{}

// NewMockGenerator creates a new mock generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

var _ Generator = (*MockGenerator)(nil)

// Generate returns a canned reply derived from the input so tests can assert
// on content without a model.
func (m *MockGenerator) Generate(ctx context.Context, message string, history []domain.Exchange) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
	default:
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hello! How can I help you today?", nil
	case strings.Contains(lower, "joke"):
		return "Why do programmers prefer dark mode? Because light attracts bugs.", nil
	default:
		return fmt.Sprintf("Mock reply to %q (history: %d turns)", message, len(history)), nil
	}
}
