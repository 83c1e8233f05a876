// Package genai provides chat completions and yes/no judgments using an OpenAI-compatible API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/BTreeMap/CareSignal/internal/models"
)

// Default generation settings
const (
	DefaultModel               = "gpt-4o-mini"
	DefaultTemperature         = 0.7
	DefaultMaxCompletionTokens = 512
	// judgeMaxCompletionTokens leaves room for "YES"/"NO" and nothing else.
	judgeMaxCompletionTokens = 4
)

var (
	ErrNoAPIKey          = errors.New("OpenAI API key not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// chatService defines the minimal surface of the chat completions API used here.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at any OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int
}

// NewClient initializes a client. The API key falls back to OPENAI_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxCompletionTokens,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("genai.NewClient: client created", "model", cfg.Model, "base_url_set", cfg.BaseURL != "")

	return &Client{
		chat:        &cli.Chat.Completions,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// GenerateWithMessages runs a chat completion over prepared messages and returns the reply text.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	}
	return c.complete(ctx, params)
}

// Reply continues a conversation: the system prompt followed by history in order.
func (c *Client) Reply(ctx context.Context, systemPrompt string, history []models.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			slog.Warn("genai.Client.Reply: skipping message with unknown role", "role", m.Role)
		}
	}
	return c.GenerateWithMessages(ctx, messages)
}

// AskYesNo asks the model to judge text under instruction. Only an exact YES
// (after trimming and upper-casing) is true; any other answer is false.
func (c *Client) AskYesNo(ctx context.Context, instruction, text string) (bool, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instruction),
			openai.UserMessage(text),
		},
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(judgeMaxCompletionTokens),
	}
	answer, err := c.complete(ctx, params)
	if err != nil {
		return false, err
	}
	return ParseYesNo(answer), nil
}

// ParseYesNo reports whether answer is exactly YES, ignoring case and surrounding whitespace.
func ParseYesNo(answer string) bool {
	return strings.ToUpper(strings.TrimSpace(answer)) == "YES"
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("genai.Client.complete: completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("genai.Client.complete: completion succeeded", "model", c.model, "length", len(content))
	return content, nil
}
