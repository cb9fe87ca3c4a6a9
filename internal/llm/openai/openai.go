package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/llm"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/store"
	"trade-mentor/internal/trace"
)

var ErrMissingCredential = errors.New("authentication failed")

// Client talks to any OpenAI-compatible chat completion endpoint.
type Client struct {
	api         *goopenai.Client
	model       string
	maxTokens   int
	temperature float32
	tokenEnv    string
	// set once at construction, checked on every call
	credentialMissing bool
}

var _ interfaces.Completer = (*Client)(nil)

// NewClient builds the client from config. An empty token does not fail
// construction; calls fail later with ErrMissingCredential.
func NewClient(cfg *store.Config, token string) *Client {
	conf := goopenai.DefaultConfig(token)
	conf.BaseURL = cfg.LLM.BaseURL
	conf.HTTPClient = &http.Client{Timeout: cfg.LLMTimeout()}

	c := &Client{
		api:               goopenai.NewClientWithConfig(conf),
		model:             cfg.LLM.Model,
		maxTokens:         cfg.LLM.MaxTokens,
		temperature:       cfg.LLM.Temperature,
		tokenEnv:          cfg.LLM.TokenEnv,
		credentialMissing: token == "",
	}
	if c.credentialMissing {
		logger.Warn(context.Background(), "LLM token not set, model calls will fail", "env", cfg.LLM.TokenEnv)
	}
	return c
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if c.credentialMissing {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, c.tokenEnv)
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: requestTemperature(c.temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// requestTemperature keeps an explicit 0 on the wire; go-openai omits a zero value.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
