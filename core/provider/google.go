package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GoogleClient calls Gemini through the Gemini API backend.
type GoogleClient struct {
	client *genai.Client
	model  string
}

func newGoogle(ctx context.Context, v Vendor) (*GoogleClient, error) {
	if err := requireKey(Google, v); err != nil {
		return nil, err
	}

	cfg := &genai.ClientConfig{
		APIKey:  v.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if v.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: v.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating google client: %w", err)
	}
	return &GoogleClient{client: client, model: orDefault(v.Model, DefaultGoogleModel)}, nil
}

func (c *GoogleClient) Name() string  { return string(Google) }
func (c *GoogleClient) Model() string { return c.model }

// Send generates content for req.Prompt.
func (c *GoogleClient) Send(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		Temperature:     genai.Ptr(float32(req.Temperature)),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", wrap(Google, apiErr.Code, err)
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return "", wrap(Google, apiErrPtr.Code, err)
		}
		return "", wrap(Google, 0, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", wrap(Google, 0, errEmptyResponse)
	}
	return text, nil
}
