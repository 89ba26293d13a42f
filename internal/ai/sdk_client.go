package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// SDKClient generates through the official openai-go SDK.
type SDKClient struct {
	cfg    ChatConfig
	client *openai.Client
}

func NewSDKClient(cfg ChatConfig) *SDKClient {
	options := []option.RequestOption{option.WithBaseURL(cfg.BaseURL)}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Timeout > 0 {
		options = append(options, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(options...)
	return &SDKClient{cfg: cfg, client: &client}
}

func (c *SDKClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrMissingCredential
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.cfg.Model,
	})
	if err != nil {
		return "", fmt.Errorf("llm sdk request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
