package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/tumortrack/internal/domain/ai"
	"github.com/bryanwahyu/tumortrack/internal/infra/ai/prompt"
)

const (
	maxTokens    = 512
	defaultModel = "gpt-4o-mini"
)

// Client is the go-openai backed ai.Narrator.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// NewClientWithBaseURL points the client at a compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

var _ ai.Narrator = (*Client)(nil)

// Narrate asks the model for a plain-language summary of report.
func (c *Client) Narrate(ctx context.Context, report []byte) (string, error) {
	user, err := prompt.GetUserPrompt(report)
	if err != nil {
		return "", err
	}
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func isQuotaError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
