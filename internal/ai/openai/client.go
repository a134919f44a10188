// Package openai implements ai.Completer on the OpenAI chat completions API
// and compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"rfp-relay-go/internal/ai"
)

const (
	DefaultModel      = "gpt-4-turbo-preview"
	DefaultScoreModel = "gpt-3.5-turbo"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Client sends completions to an OpenAI-compatible API
type Client struct {
	chat chatClient
}

// NewClient creates a client. baseURL may be empty for the public API.
func NewClient(apiKey, baseURL string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{chat: goopenai.NewClientWithConfig(cfg)}, nil
}

func (c *Client) Complete(ctx context.Context, req ai.Completion) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	var messages []goopenai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.chat.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ai.ErrEmptyResponse
	}
	return content, nil
}
