// Package llm generates reply and outreach text through an
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrNotConfigured is returned when no API key was provided.
	ErrNotConfigured = errors.New("llm: not configured")
	// ErrEmptyCompletion is returned when the model produced no text.
	ErrEmptyCompletion = errors.New("llm: empty completion")
)

const defaultTimeout = 30 * time.Second

// Config configures the client.
type Config struct {
	APIKey      string //nolint:gosec // G117: API key config
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client generates text with a chat completion model. A Client built without
// an API key is valid and fails every call with ErrNotConfigured.
type Client struct {
	client *openai.Client
	cfg    Config
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("llm.New: WA_OPENAI_API_KEY not set, replies fall back to canned text")
		return &Client{cfg: cfg}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	log.Info().Str("model", cfg.Model).Msg("llm.New: text generator ready")
	return &Client{client: openai.NewClientWithConfig(clientConfig), cfg: cfg}
}

// Configured reports whether the client can reach a model.
func (c *Client) Configured() bool { return c != nil && c.client != nil }

// Generate returns the model's reply to prompt under the system instruction.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm.Client.Generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm.Client.Generate: %w", ErrEmptyCompletion)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("llm.Client.Generate: %w", ErrEmptyCompletion)
	}
	return text, nil
}
