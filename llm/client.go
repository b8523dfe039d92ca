// Package llm is the completion-service collaborator: a thin client for an
// OpenAI-compatible chat completions API. The engine treats it as a black
// box; there are no retries here, failures surface as errors and become
// user-facing fallback messages upstream.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	client *resty.Client
	model  string
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(apiKey).
			SetTimeout(30 * time.Second),
		model: model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a system instruction plus the user's message and returns
// the generated text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
	}

	var result chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("completion request failed: %s", result.Error.Message)
		}
		return "", fmt.Errorf("completion request failed: status %d", resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return result.Choices[0].Message.Content, nil
}
