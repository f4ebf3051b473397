package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// XAIClient talks to xAI's OpenAI-compatible endpoint through an eino chat model.
type XAIClient struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	// build creates the chat model per call so token and temperature
	// settings follow the request.
	build func(ctx context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error)
}

func newXAI(_ context.Context, v Vendor, timeout time.Duration) (*XAIClient, error) {
	if err := requireKey(XAI, v); err != nil {
		return nil, err
	}
	return &XAIClient{
		baseURL: orDefault(v.BaseURL, DefaultXAIURL),
		apiKey:  v.APIKey,
		model:   orDefault(v.Model, DefaultXAIModel),
		timeout: timeout,
		build: func(ctx context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error) {
			return openai.NewChatModel(ctx, cfg)
		},
	}, nil
}

func (c *XAIClient) Name() string  { return string(XAI) }
func (c *XAIClient) Model() string { return c.model }

// Send generates a single reply to req.Prompt.
func (c *XAIClient) Send(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	temperature := float32(req.Temperature)

	cm, err := c.build(ctx, &openai.ChatModelConfig{
		BaseURL:     c.baseURL,
		APIKey:      c.apiKey,
		Model:       c.model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     c.timeout,
	})
	if err != nil {
		return "", wrap(XAI, 0, fmt.Errorf("creating chat model: %w", err))
	}

	resp, err := cm.Generate(ctx, []*schema.Message{schema.UserMessage(req.Prompt)})
	if err != nil {
		return "", wrap(XAI, 0, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", wrap(XAI, 0, errEmptyResponse)
	}
	return resp.Content, nil
}
