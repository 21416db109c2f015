// Package summary generates an optional natural-language executive summary
// of an audit through an OpenAI-compatible chat API. The audit never depends
// on it: summary failures are logged and the report ships without one.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/geoaudit/geoaudit/internal/report"
)

// Client wraps the chat API used for summaries.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a summary client. BaseURL may point at any OpenAI-compatible
// server; empty means the default endpoint.
func New(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

const systemPrompt = "You are a concise web audit assistant. Given section scores from a " +
	"Generative Engine Optimization audit, write a short executive summary (at most 120 words) " +
	"naming the strongest area, the weakest area, and the single most impactful fix. Plain prose, no lists."

// Executive produces the summary text for one audit.
func (c *Client) Executive(ctx context.Context, url string, analysis *report.Analysis) (string, error) {
	if c == nil || c.model == "" {
		return "", errors.New("summary: client not configured")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", url)
	for _, sec := range analysis.Ordered() {
		fmt.Fprintf(&b, "%s: %d/%d (%s)\n", sec.Name, sec.TotalScore, sec.MaxScore, sec.Status)
	}
	if analysis.AEOScore != nil {
		fmt.Fprintf(&b, "Overall: %d/100 (%s)\n", analysis.AEOScore.TotalScore, analysis.AEOScore.Completeness)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summary: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("summary: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
