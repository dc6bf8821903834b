// Package llm wraps the OpenAI chat completion API as a plain text generator.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

var ErrEmptyCompletion = errors.New("llm: empty completion")

type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	jsonMode    bool
}

func NewClient(apiKey string) *Client {
	return NewClientWithConfig(ClientConfig{APIKey: apiKey})
}

func NewClientWithConfig(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 600
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
	}
}

// JSON returns a copy of the client that asks the model for a JSON object.
func (c *Client) JSON() *Client {
	cp := *c
	cp.jsonMode = true
	return &cp
}

// Generate sends one system and one user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    c.messages(system, prompt),
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := resp.Choices[0].Message.Content
	if c.jsonMode {
		content = CleanJSONResponse(content)
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func (c *Client) messages(system, prompt string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}

// CleanJSONResponse strips markdown code fences models like to add.
func CleanJSONResponse(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}

// Truncate cuts s to maxLen runes and marks the cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
