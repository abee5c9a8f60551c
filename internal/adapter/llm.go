// Package adapter wraps the OpenAI-compatible completion endpoint used by
// the prompt preview route: a resolved prompt is sent as the system prompt
// so operators can see how a model behaves with it.
package adapter

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"janus/pkg/logger"
)

// LLMAdapter handles communication with the LLM via an OpenAI-compatible
// proxy (LiteLLM, OpenRouter).
type LLMAdapter struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// New creates an adapter against the given base URL and model.
func New(baseURL, apiKey, modelID string) *LLMAdapter {
	// Proxies like LiteLLM accept a dummy key when none is configured
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	return &LLMAdapter{
		client: openai.NewClientWithConfig(config),
		model:  modelID,
		logger: logger.Get(),
	}
}

// Complete sends the rendered prompt as the system prompt with a user
// message and returns the model's reply.
func (a *LLMAdapter) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	a.logger.Debug("Preview completion",
		zap.String("model", a.model),
		zap.Int("prompt_chars", len(systemPrompt)),
	)
	return resp.Choices[0].Message.Content, nil
}
