// Package evaluator talks to the remote model that grades answers.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
)

// Defaults for an OpenRouter-backed client.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-oss-120b"

	assessmentMaxTokens   = 2048
	assessmentTemperature = 0.5
	chatMaxTokens         = 1024
	chatTemperature       = 0.7
)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("an OpenRouter API key is required")

// Config configures the client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	// HTTPTimeout bounds a single HTTP exchange. Zero leaves it to the
	// caller's context.
	HTTPTimeout time.Duration
}

// Client sends evaluation prompts to an OpenAI-compatible chat API.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a client from cfg.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	if cfg.HTTPTimeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Client{
		api:    openai.NewClientWithConfig(config),
		cfg:    cfg,
		logger: logger.Named("evaluator"),
	}, nil
}

// Model returns the model requests are sent to.
func (c *Client) Model() string { return c.cfg.Model }

// Evaluate asks the model to grade req and returns its raw reply.
func (c *Client) Evaluate(ctx context.Context, req evaluation.Request) (string, error) {
	return c.complete(ctx, prompt(evaluation.AnswerSystemPrompt, req.Prompt()), c.cfg.Temperature, c.cfg.MaxTokens)
}

// AssessSession asks the model to review a finished session and returns its
// raw reply.
func (c *Client) AssessSession(ctx context.Context, deck string, cards []evaluation.CardResult) (string, error) {
	temperature := c.cfg.Temperature
	if temperature == 0 {
		temperature = assessmentTemperature
	}
	maxTokens := c.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = assessmentMaxTokens
	}
	return c.complete(ctx, prompt(evaluation.AssessmentSystemPrompt, evaluation.AssessmentPrompt(deck, cards)), temperature, maxTokens)
}

// Chat continues the conversation about topic. history holds the earlier
// turns, oldest first; message is the user's new question.
func (c *Client) Chat(ctx context.Context, topic evaluation.ChatTopic, history []evaluation.ChatTurn, message string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: evaluation.ChatSystemPrompt(topic),
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
	return c.complete(ctx, messages, chatTemperature, chatMaxTokens)
}

func prompt(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    messages,
	})
	if err != nil {
		c.logger.Warn("chat completion failed",
			zap.String("model", c.cfg.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("openrouter: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: no choices in response")
	}

	content := responseText(resp.Choices[0].Message)
	c.logger.Debug("chat completion",
		zap.String("model", c.cfg.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("content", content))
	return content, nil
}

// responseText joins the text parts of a reply that came back as parts
// rather than a single string.
func responseText(msg openai.ChatCompletionMessage) string {
	if msg.Content != "" || len(msg.MultiContent) == 0 {
		return strings.TrimSpace(msg.Content)
	}
	var parts []string
	for _, p := range msg.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText {
			parts = append(parts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
