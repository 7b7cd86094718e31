// Package ai generates chat replies through an OpenAI-compatible completion
// endpoint.
package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hookline/hookline/internal/pkg/env"
)

const defaultSystemPrompt = "You are a friendly shop assistant. Answer the customer's message briefly and helpfully."

// Client is the completion API client using the OpenAI-compatible interface
type Client struct {
	client       *openai.Client
	model        string
	systemPrompt string
	temperature  float32
	maxTokens    int
}

func NewClientFromEnv() *Client {
	config := openai.DefaultConfig(env.GetEnv("OPENAI_API_KEY", ""))
	if base := strings.TrimSpace(env.GetEnv("OPENAI_BASE_URL", "")); base != "" {
		config.BaseURL = base
	}

	temperature := 0.7
	if v, err := strconv.ParseFloat(env.GetEnv("AI_TEMPERATURE", ""), 64); err == nil {
		temperature = v
	}
	maxTokens := 256
	if v, err := strconv.Atoi(env.GetEnv("AI_MAX_TOKENS", "")); err == nil && v > 0 {
		maxTokens = v
	}

	return &Client{
		client:       openai.NewClientWithConfig(config),
		model:        env.GetEnv("OPENAI_MODEL", openai.GPT4oMini),
		systemPrompt: env.GetEnv("AI_SYSTEM_PROMPT", defaultSystemPrompt),
		temperature:  float32(temperature),
		maxTokens:    maxTokens,
	}
}

// Complete sends the prompt and returns the generated reply text. Transport
// faults and empty responses both surface as errors so the caller's retry
// policy treats them identically.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
