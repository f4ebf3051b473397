package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropic(v Vendor) (*AnthropicClient, error) {
	if err := requireKey(Anthropic, v); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(v.APIKey),
		option.WithMaxRetries(0),
	}
	if v.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(v.BaseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  orDefault(v.Model, DefaultAnthropicModel),
	}, nil
}

func (c *AnthropicClient) Name() string  { return string(Anthropic) }
func (c *AnthropicClient) Model() string { return c.model }

// Send posts req.Prompt as a single user message and joins the text blocks
// of the reply.
func (c *AnthropicClient) Send(ctx context.Context, req Request) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", wrap(Anthropic, apiErr.StatusCode, err)
		}
		return "", wrap(Anthropic, 0, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", wrap(Anthropic, 0, errEmptyResponse)
	}
	return b.String(), nil
}
