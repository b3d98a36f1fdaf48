// Package model provides the OpenAI-compatible HTTP client.
// Works against api.openai.com or any endpoint speaking the same
// /chat/completions and /models shapes.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cocoro-ai/cocoro/internal/errors"
)

// OpenAIConfig configures the completion client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // Default: https://api.openai.com/v1
	Timeout    time.Duration
	MaxRetries int // transport retries within one candidate attempt
	MaxTokens  int
}

// DefaultOpenAIConfig returns default configuration.
func DefaultOpenAIConfig(apiKey string) *OpenAIConfig {
	return &OpenAIConfig{
		APIKey:     apiKey,
		BaseURL:    "https://api.openai.com/v1",
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		MaxTokens:  500,
	}
}

// OpenAIClient implements CompletionClient over an OpenAI-compatible API.
type OpenAIClient struct {
	cfg         *OpenAIConfig
	client      *http.Client
	retryPolicy *errors.Policy
}

// NewOpenAIClient creates a new client.
func NewOpenAIClient(cfg *OpenAIConfig) *OpenAIClient {
	if cfg == nil {
		return nil
	}

	retryPolicy := &errors.Policy{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryIf: func(err error) bool {
			category := errors.GetCategory(err)
			return category == errors.CategoryTemporary || category == errors.CategoryRateLimit
		},
	}
	if retryPolicy.MaxAttempts < 1 {
		retryPolicy.MaxAttempts = 1
	}

	return &OpenAIClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryPolicy: retryPolicy,
	}
}

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Completion, error) {
	if c == nil {
		return nil, errors.New(errors.CodeModelUnavailable, "completion client not initialized", errors.CategorySystem)
	}

	body := map[string]any{
		"model":       string(req.Model),
		"messages":    req.Messages,
		"temperature": req.Temperature,
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	if maxTokens > 0 {
		body["max_tokens"] = maxTokens
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeModelInvalidResponse, "failed to marshal request", errors.CategoryPermanent)
	}

	respBody, retryErr := errors.DoWithResult(ctx, c.retryPolicy, func() ([]byte, error) {
		return c.post(ctx, "/chat/completions", jsonBody)
	})
	if retryErr != nil {
		return nil, retryErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.CodeModelParseError, "failed to parse completion response", errors.CategoryPermanent)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New(errors.CodeModelInvalidResponse, "completion response contained no choices", errors.CategoryPermanent)
	}

	return &Completion{
		Text:       parsed.Choices[0].Message.Content,
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

// ListModels queries the availability of backend models.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]Candidate, error) {
	if c == nil {
		return nil, errors.New(errors.CodeAvailabilityFailed, "completion client not initialized", errors.CategorySystem)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeAvailabilityFailed, "failed to create models request", errors.CategoryTemporary)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeAvailabilityFailed, "models request failed", errors.CategoryTemporary)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.CodeAvailabilityFailed, "failed to read models response", errors.CategoryTemporary)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Temporary(errors.CodeAvailabilityFailed,
			fmt.Sprintf("models listing failed (status %d)", resp.StatusCode))
	}

	var parsed modelsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.CodeAvailabilityFailed, "failed to parse models response", errors.CategoryPermanent)
	}

	candidates := make([]Candidate, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if m.ID != "" {
			candidates = append(candidates, Candidate(m.ID))
		}
	}
	return candidates, nil
}

// post issues one POST and classifies the HTTP status.
func (c *OpenAIClient) post(ctx context.Context, path string, jsonBody []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to create HTTP request", errors.CategoryTemporary)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "network request failed", errors.CategoryTemporary)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.CodeNetworkUnavailable, "failed to read response body", errors.CategoryTemporary)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return respBody, nil
	case http.StatusTooManyRequests:
		return nil, rateLimitError(resp)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errors.Permanent(errors.CodeModelUnavailable, "API key rejected")
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, errors.Permanent(errors.CodeModelUnavailable,
			fmt.Sprintf("model rejected (status %d): %s", resp.StatusCode, truncate(respBody, 200)))
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return nil, errors.Temporary(errors.CodeModelUnavailable, fmt.Sprintf("API unavailable: %s", resp.Status))
	default:
		return nil, errors.Temporary(errors.CodeModelUnavailable,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, truncate(respBody, 200)))
	}
}

func (c *OpenAIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

// rateLimitError honors Retry-After when the server provides one.
func rateLimitError(resp *http.Response) error {
	retryAfter := 2 * time.Second
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	return errors.RateLimit(errors.CodeModelRateLimit, "rate limited", retryAfter)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ============================================================
// OpenAI API Types
// ============================================================

type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type modelsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		ID string `json:"id"`
	} `json:"data"`
}
