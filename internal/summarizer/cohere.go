package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereClient 通过 cohere-go SDK 调用 Chat 接口
type CohereClient struct {
	client *cohereclient.Client
	model  string
}

func NewCohereClient(apiKey, model string, timeout time.Duration) *CohereClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &CohereClient{client: client, model: model}
}

func (c *CohereClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	preamble := systemPrompt
	req := &cohere.ChatRequest{
		Message:  prompt,
		Preamble: &preamble,
	}
	if c.model != "" {
		model := c.model
		req.Model = &model
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}
