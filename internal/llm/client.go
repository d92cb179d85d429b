// Package llm wraps the external completion service used by every
// stage analyzer.
package llm

import (
	"context"
	"fmt"
	"strings"

	"wbs-analyzer/internal/common/config"

	"github.com/sashabaranov/go-openai"
)

// Request carries one completion call. The user content is rendered by
// the calling stage; System holds the stage's fixed instruction template.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Completer is the single operation the pipeline needs from the
// completion service. Implementations must force strict JSON output.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a completion client. BaseURL allows pointing at any
// OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	}

	// Reasoning models reject the legacy MaxTokens field.
	if strings.HasPrefix(c.model, "o1") || strings.HasPrefix(c.model, "o3") || strings.HasPrefix(c.model, "o4") || strings.HasPrefix(c.model, "gpt-5") {
		chatReq.MaxCompletionTokens = req.MaxTokens
	} else {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
