package summarize

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are an assistant that summarizes text clearly and concisely."

// Config controls the OpenAI-backed summarizer.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, for proxies or compatible servers.
	BaseURL string
	// Model defaults to gpt-4o-mini.
	Model string
	// Temperature defaults to 0.3; low values keep summaries precise.
	Temperature float32
	// Timeout bounds each completion call (default 30s).
	Timeout time.Duration
}

// OpenAIClient implements Summarizer against the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAIClient validates the config and builds the API client.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// Summarize asks the model for a summary of text.
func (c *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Summarize the following text:\n\n" + text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
