package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	openaiBaseURL      = "https://api.openai.com/v1"
	openaiModel        = "gpt-3.5-turbo"
	openaiMaxTokens    = 800
	openaiTemperature  = 0.7
	openaiInitialDelay = 1 * time.Second
)

// ErrNotConfigured is returned by an LLM that has no credentials.
var ErrNotConfigured = errors.New("language model not configured")

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLM completes a conversation.
type LLM interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// OpenAIClient calls the chat completions endpoint.
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	model        string
	maxRetries   int
	initialDelay time.Duration
	client       *http.Client
}

type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type openaiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		model:        opts.Model,
		maxRetries:   opts.MaxRetries,
		initialDelay: openaiInitialDelay,
		client:       &http.Client{Timeout: opts.Timeout},
	}
	if c.baseURL == "" {
		c.baseURL = openaiBaseURL
	}
	if c.model == "" {
		c.model = openaiModel
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 1
	}
	return c
}

func (c *OpenAIClient) Model() string {
	return c.model
}

func (c *OpenAIClient) Configured() bool {
	return c.apiKey != ""
}

// Complete retries rate limits and server errors with exponential backoff.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   openaiMaxTokens,
		Temperature: openaiTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			// 2x, 4x, ... the initial delay
			delay := time.Duration(math.Pow(2, float64(attempt))) * c.initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr openaiError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				lastErr = fmt.Errorf("OpenAI API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("OpenAI API error (%d): %s", resp.StatusCode, string(respBody))
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var out chatResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(out.Choices) == 0 {
			return "", fmt.Errorf("no choices returned")
		}
		return out.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}
