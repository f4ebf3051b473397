package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient calls a local Ollama server's generate API.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// ollamaOptions are the sampling options of a generate call.
type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// ollamaRequest is the request body for the Ollama generate API.
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

// ollamaResponse is the non-streaming response body of the generate API.
type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func newOllama(v Vendor, timeout time.Duration) (*OllamaClient, error) {
	return &OllamaClient{
		baseURL: strings.TrimSuffix(orDefault(v.BaseURL, DefaultOllamaURL), "/"),
		model:   orDefault(v.Model, DefaultOllamaModel),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *OllamaClient) Name() string  { return string(Ollama) }
func (c *OllamaClient) Model() string { return c.model }

// Send runs a non-streaming generation.
func (c *OllamaClient) Send(ctx context.Context, req Request) (string, error) {
	bodyBytes, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return "", wrap(Ollama, 0, fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", wrap(Ollama, 0, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", wrap(Ollama, 0, fmt.Errorf("calling Ollama API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", wrap(Ollama, resp.StatusCode, fmt.Errorf("ollama API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", wrap(Ollama, 0, fmt.Errorf("%w: decoding Ollama response: %v", errEmptyResponse, err))
	}
	if out.Error != "" {
		return "", wrap(Ollama, 0, fmt.Errorf("%w: %s", errEmptyResponse, out.Error))
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", wrap(Ollama, 0, errEmptyResponse)
	}
	return out.Response, nil
}
