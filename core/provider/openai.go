package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls OpenAI's Chat Completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func newOpenAI(v Vendor) (*OpenAIClient, error) {
	if err := requireKey(OpenAI, v); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(v.APIKey),
		option.WithMaxRetries(0),
	}
	if v.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(v.BaseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  orDefault(v.Model, DefaultOpenAIModel),
	}, nil
}

func (c *OpenAIClient) Name() string  { return string(OpenAI) }
func (c *OpenAIClient) Model() string { return c.model }

// Send asks for a single completion of req.Prompt.
func (c *OpenAIClient) Send(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", wrap(OpenAI, apiErr.StatusCode, err)
		}
		return "", wrap(OpenAI, 0, err)
	}

	if len(resp.Choices) == 0 {
		return "", wrap(OpenAI, 0, errEmptyResponse)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", wrap(OpenAI, 0, errEmptyResponse)
	}
	return text, nil
}
