package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/qbank/internal/llm/prompts"
	"github.com/pavelanni/qbank/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("LLM returned an empty response")

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client and loads the prompt templates.
func New(baseURL, apiKey, modelName string) (*Client, error) {
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}, nil
}

// Ping verifies that the endpoint answers by listing its models.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// ExplainQuestion asks the model why q's correct option is right.
func (c *Client) ExplainQuestion(ctx context.Context, q model.MCQQuestion) (string, error) {
	prompt, err := prompts.BuildExplainPrompt(q)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	text, err := c.complete(ctx, prompt, 0.2)
	if err != nil {
		return "", fmt.Errorf("explain %s: %w", q.ID, err)
	}
	return text, nil
}

// StudyPlan asks the model for a revision note on the given weak topics.
func (c *Client) StudyPlan(ctx context.Context, subject string, weakTopics []string) (string, error) {
	prompt, err := prompts.BuildStudyPlanPrompt(subject, weakTopics)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	return c.complete(ctx, prompt, 0.5)
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// FallbackStudyPlan is the revision note used when no model is available.
func FallbackStudyPlan(subject string, weakTopics []string) string {
	if len(weakTopics) == 0 {
		return fmt.Sprintf("Your %s attempt shows no clear weak areas.", subject)
	}
	return fmt.Sprintf("Focus revision on %s in %s. For each topic, revise definitions, solve 3-5 examples, and summarize trade-offs in one short note.",
		strings.Join(weakTopics, ", "), subject)
}
