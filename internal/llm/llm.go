package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request describes one completion call to a backend.
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature *float32
}

// Client abstracts LLM providers. Implementations return the raw text
// completion; callers own all parsing.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Failure classification codes for backend errors.
const (
	CodeTimeout     = "timeout"
	CodeRateLimited = "rate_limited"
	CodeNetwork     = "network"
	CodeService     = "service"
	CodeEmpty       = "empty_response"
	CodeUnknown     = "unknown"
)

// Error is a classified backend failure.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("llm %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the classification code of err, or CodeUnknown.
func CodeOf(err error) string {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	return CodeUnknown
}

// ErrMissingCredential is returned at construction time when the provider
// API key is absent, so misconfiguration fails fast instead of surfacing
// mid-request.
var ErrMissingCredential = errors.New("missing llm credential")
