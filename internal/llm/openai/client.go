package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"contract-review-backend/internal/llm"
	"contract-review-backend/internal/shared/telemetry"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. The timeout bounds the whole
// request; it defaults to 90s so analysis calls fail before typical worker
// timeouts, and can be overridden with OPENAI_TIMEOUT_SECONDS.
func NewClient(apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", llm.ErrMissingCredential)
	}
	timeout := 90 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request and returns the raw text of
// the first choice. Failures are classified into llm.Error codes.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", &llm.Error{Code: llm.CodeService, Message: "model is required"}
	}

	reqBody := chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &llm.Error{Code: llm.CodeUnknown, Message: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", &llm.Error{Code: llm.CodeUnknown, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", &llm.Error{Code: llm.CodeTimeout, Message: "request timed out", Err: err}
		}
		return "", &llm.Error{Code: llm.CodeNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.Error{Code: llm.CodeNetwork, Message: "read response", Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &llm.Error{Code: llm.CodeRateLimited, Message: "rate limit exceeded"}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &llm.Error{Code: llm.CodeService, Message: "response parse", Err: err}
	}
	if parsed.Error != nil {
		if strings.Contains(strings.ToLower(parsed.Error.Type), "rate_limit") {
			return "", &llm.Error{Code: llm.CodeRateLimited, Message: parsed.Error.Message}
		}
		return "", &llm.Error{Code: llm.CodeService, Message: fmt.Sprintf("%s (%s)", parsed.Error.Message, parsed.Error.Type)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &llm.Error{Code: llm.CodeService, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if len(parsed.Choices) == 0 {
		return "", &llm.Error{Code: llm.CodeEmpty, Message: "response missing choices"}
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &llm.Error{Code: llm.CodeEmpty, Message: "response empty content"}
	}

	logUsage(req.Model, &parsed)
	return content, nil
}

func logUsage(model string, resp *chatResponse) {
	fields := map[string]any{"model": model}
	if resp.Usage != nil {
		fields["prompt_tokens"] = resp.Usage.PromptTokens
		fields["completion_tokens"] = resp.Usage.CompletionTokens
		fields["total_tokens"] = resp.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Client = (*Client)(nil)
