// Package provider implements the upstream chat-completion boundary: an
// OpenAI-compatible client used for OpenRouter-style endpoints.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/promptgate-ai/promptgate/pkg/models"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Error is a typed upstream failure. Type is a stable tag callers and
// the error log can assert on; Message carries detail.
type Error struct {
	Type    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Upstream error type tags.
const (
	ErrTypeConnection = "connection_error"
	ErrTypeStatus     = "upstream_status"
	ErrTypeDecode     = "decode_error"
	ErrTypeEmpty      = "empty_response"
)

// Result is a successful completion: the generated text plus token usage.
type Result struct {
	Text  string
	Usage models.Usage
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ChatCompletion sends the request and returns the first choice's text
// with usage counts. All failures are *Error values with a type tag.
func (c *Client) ChatCompletion(ctx context.Context, req models.ChatCompletionRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Type: ErrTypeDecode, Message: fmt.Sprintf("encode request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Type: ErrTypeConnection, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Type: ErrTypeConnection, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Type: ErrTypeConnection, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Type:    ErrTypeStatus,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(respBody), 512)),
		}
	}

	var completion models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, &Error{Type: ErrTypeDecode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(completion.Choices) == 0 {
		return nil, &Error{Type: ErrTypeEmpty, Message: "response contained no choices"}
	}

	res := &Result{Text: completion.Choices[0].Message.Content}
	if completion.Usage != nil {
		res.Usage = *completion.Usage
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
