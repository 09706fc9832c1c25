package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvChatterboxMode is the environment variable name for mode selection.
	EnvChatterboxMode = "CHATTERBOX_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewGenerator creates a generator based on the CHATTERBOX_MODE environment
// variable. If CHATTERBOX_MODE=MOCK, returns a MockGenerator; otherwise
// returns an OpenAI-backed generator.
func NewGenerator(apiKey, baseURL, model string, timeout time.Duration) Generator {
	mode := os.Getenv(EnvChatterboxMode)

	if mode == ModeMock {
		log.Println("CHATTERBOX_MODE=MOCK detected, using mock generator")
		return NewMockGenerator()
	}

	return NewOpenAIGenerator(apiKey, baseURL, model, timeout)
}
