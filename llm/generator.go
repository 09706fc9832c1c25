// Package llm provides the text-generation capability consumed by the chat
// service. The capability is opaque: text plus history in, text out.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/yataro/chatterbox/domain"
)

// ErrGeneration is the root of the generation failure taxonomy. Callers use
// errors.Is against it to distinguish generation failures from storage ones.
var ErrGeneration = errors.New("generation failed")

// ErrEmptyCompletion is returned when the model produced no usable text. An
// empty result violates the generator contract and counts as a failure.
var ErrEmptyCompletion = fmt.Errorf("%w: empty completion", ErrGeneration)

// Generator is the generation collaborator. History is the ordered sequence
// of prior (user, response) pairs; how it is folded into the model's native
// input encoding is the implementation's own business.
type Generator interface {
	Generate(ctx context.Context, message string, history []domain.Exchange) (string, error)
}
