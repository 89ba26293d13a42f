package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingCredential = errors.New("generation api key is not configured")
	ErrEmptyResponse     = errors.New("generation service returned an empty response")
	ErrNonTextResponse   = errors.New("generation service returned a non-text response")
)

// Generator turns a single prompt into a text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ChatConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

func NewGenerator(cfg ChatConfig) (Generator, error) {
	switch cfg.Provider {
	case "", "openai-compatible":
		return NewOpenAICompatibleClient(cfg), nil
	case "openai-sdk":
		return NewSDKClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
