package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-mentor/internal/llm"
	"trade-mentor/internal/store"
)

func testConfig(baseURL string) *store.Config {
	cfg := store.Default()
	cfg.LLM.BaseURL = baseURL
	cfg.LLM.Model = "test-model"
	return cfg
}

func TestCompleteSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.InDelta(t, 0.1, body.Temperature, 1e-6)
		assert.Equal(t, 2048, body.MaxTokens)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "hello", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"{\"total_score\":1}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	reply, err := NewClient(testConfig(srv.URL+"/v1"), "secret").Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"total_score":1}`, reply)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL+"/v1"), "secret").Complete(context.Background(), "hello")
	require.ErrorIs(t, err, llm.ErrNoChoices)
}

func TestCompleteMissingCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a token")
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL+"/v1"), "").Complete(context.Background(), "hello")
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, "authentication failed: HF_TOKEN is not set", err.Error())
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid token","type":"auth"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL+"/v1"), "bad").Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestCompleteSendsZeroTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body, "temperature")
		assert.InDelta(t, 0, body["temperature"], 1e-6)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL + "/v1")
	cfg.LLM.Temperature = 0
	_, err := NewClient(cfg, "secret").Complete(context.Background(), "hello")
	require.NoError(t, err)
}
