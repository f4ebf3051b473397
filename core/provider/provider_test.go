package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerKind(t *testing.T, err error) core.ProviderErrorKind {
	t.Helper()
	var providerErr *core.ProviderError
	require.ErrorAs(t, err, &providerErr)
	return providerErr.Kind
}

func TestWrapClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   core.ProviderErrorKind
	}{
		{"unauthorized", 401, errors.New("bad key"), core.ProviderAuth},
		{"forbidden", 403, errors.New("nope"), core.ProviderAuth},
		{"rate limited", 429, errors.New("slow down"), core.ProviderRateLimit},
		{"server error", 503, errors.New("overloaded"), core.ProviderUnavailable},
		{"other client error", 400, errors.New("bad request"), core.ProviderBadResponse},
		{"deadline", 0, fmt.Errorf("call: %w", context.DeadlineExceeded), core.ProviderNetwork},
		{"empty output", 0, errEmptyResponse, core.ProviderBadResponse},
		{"message 429", 0, errors.New("error, status code: 429, message: too many requests"), core.ProviderRateLimit},
		{"message 401", 0, errors.New("status code: 401 Unauthorized"), core.ProviderAuth},
		{"unknown text", 0, errors.New("something odd"), core.ProviderBadResponse},
		{"number containing 500", 0, errors.New("max_tokens 5000 exceeds model limit"), core.ProviderBadResponse},
		{"number containing 429", 0, errors.New("request id 14291 rejected"), core.ProviderBadResponse},
		{"status beats other numbers", 0, errors.New("prompt of 5030 tokens: status code: 400"), core.ProviderBadResponse},
		{"http status text", 0, errors.New("HTTP 502 from upstream"), core.ProviderUnavailable},
		{"bare server code", 0, errors.New("upstream returned 503"), core.ProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap(OpenAI, tt.status, tt.err)
			assert.Equal(t, tt.want, providerKind(t, err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewRequiresKeys(t *testing.T) {
	for _, kind := range []Kind{Anthropic, OpenAI, Google, XAI} {
		_, err := New(context.Background(), Config{Provider: kind})
		assert.Error(t, err, "provider %s", kind)
	}

	c, err := New(context.Background(), Config{Provider: Ollama})
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Name())
	assert.Equal(t, DefaultOllamaModel, c.Model())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "watson"})
	assert.ErrorContains(t, err, "unknown AI provider")
}

func TestNewAppliesDefaultsAndRateLimit(t *testing.T) {
	c, err := New(context.Background(), Config{
		Provider:  Anthropic,
		Anthropic: Vendor{APIKey: "sk-test"},
		RPM:       30,
	})
	require.NoError(t, err)

	_, limited := c.(*RateLimited)
	assert.True(t, limited)
	assert.Equal(t, DefaultAnthropicModel, c.Model())
}

func TestOllamaSend(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaResponse{Response: "## EXECUTIVE SUMMARY\nok", Done: true})
	}))
	defer srv.Close()

	c, err := newOllama(Vendor{BaseURL: srv.URL + "/", Model: "llama3.1"}, 5*time.Second)
	require.NoError(t, err)

	text, err := c.Send(context.Background(), Request{Prompt: "hello", MaxTokens: 100, Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "## EXECUTIVE SUMMARY\nok", text)
	assert.Equal(t, "llama3.1", got.Model)
	assert.Equal(t, "hello", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 100, got.Options.NumPredict)
	assert.InDelta(t, 0.7, got.Options.Temperature, 1e-9)
}

func TestOllamaErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    core.ProviderErrorKind
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		}, core.ProviderUnavailable},
		{"empty response", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":"","done":true}`))
		}, core.ProviderBadResponse},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}, core.ProviderBadResponse},
		{"model missing", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}, core.ProviderBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, _ := newOllama(Vendor{BaseURL: srv.URL}, 5*time.Second)
			_, err := c.Send(context.Background(), Request{Prompt: "p", MaxTokens: 10})
			assert.Equal(t, tt.want, providerKind(t, err))
		})
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c, _ := newOllama(Vendor{BaseURL: "http://127.0.0.1:1"}, time.Second)

	_, err := c.Send(context.Background(), Request{Prompt: "p"})
	assert.Equal(t, core.ProviderNetwork, providerKind(t, err))
}

type fakeChatModel struct {
	reply *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestXAISend(t *testing.T) {
	c, err := newXAI(context.Background(), Vendor{APIKey: "xai-test"}, time.Minute)
	require.NoError(t, err)

	var seen *openai.ChatModelConfig
	c.build = func(_ context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error) {
		seen = cfg
		return &fakeChatModel{reply: schema.AssistantMessage("analysis", nil)}, nil
	}

	text, err := c.Send(context.Background(), Request{Prompt: "p", MaxTokens: 256, Temperature: 0.5})
	require.NoError(t, err)

	assert.Equal(t, "analysis", text)
	assert.Equal(t, DefaultXAIURL, seen.BaseURL)
	assert.Equal(t, DefaultXAIModel, seen.Model)
	assert.Equal(t, 256, *seen.MaxTokens)
	assert.InDelta(t, 0.5, *seen.Temperature, 1e-6)

	c.build = func(context.Context, *openai.ChatModelConfig) (model.BaseChatModel, error) {
		return &fakeChatModel{err: errors.New("error, status code: 429, message: rate limited")}, nil
	}
	_, err = c.Send(context.Background(), Request{Prompt: "p"})
	assert.Equal(t, core.ProviderRateLimit, providerKind(t, err))
}

type countingClient struct {
	calls int64
}

func (c *countingClient) Name() string  { return "fake" }
func (c *countingClient) Model() string { return "fake-1" }
func (c *countingClient) Send(context.Context, Request) (string, error) {
	atomic.AddInt64(&c.calls, 1)
	return "ok", nil
}

func TestRateLimitedWaits(t *testing.T) {
	inner := &countingClient{}
	c := WithRateLimit(inner, 1)

	_, err := c.Send(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Send(ctx, Request{})

	assert.Equal(t, core.ProviderRateLimit, providerKind(t, err))
	assert.EqualValues(t, 1, atomic.LoadInt64(&inner.calls))
	assert.Equal(t, "fake-1", c.Model())
}
