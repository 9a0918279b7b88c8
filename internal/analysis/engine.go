package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"contract-review-backend/internal/llm"
	"contract-review-backend/internal/shared/telemetry"
)

const analysisMaxTokens = 4000

// Engine runs the structured contract analysis against an LLM backend.
// Every invocation is a fresh call; nothing is retried or cached here.
type Engine struct {
	Client llm.Client
	Model  string
}

// NewEngine constructs an Engine from an explicit client and model.
func NewEngine(client llm.Client, model string) *Engine {
	return &Engine{Client: client, Model: model}
}

// Analyze prompts the backend with the contract text and review config and
// parses the structured result. Failures are mapped to the typed analysis
// errors; a parse failure carries the raw output and never a partial result.
func (e *Engine) Analyze(ctx context.Context, contractText string, cfg ReviewConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompt := BuildAnalysisPrompt(contractText, cfg)
	raw, err := e.Client.Complete(ctx, llm.Request{
		Model:     e.Model,
		Prompt:    prompt,
		MaxTokens: analysisMaxTokens,
	})
	if err != nil {
		return nil, classifyBackendError(err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}

	payload := extractJSONPayload(raw)

	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		telemetry.Error("analysis.parse_failed", map[string]any{
			"err":     err.Error(),
			"raw_len": len(raw),
		})
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &result, nil
}

func classifyBackendError(err error) error {
	var lerr *llm.Error
	if !errors.As(err, &lerr) {
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	switch lerr.Code {
	case llm.CodeTimeout:
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case llm.CodeRateLimited:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case llm.CodeNetwork:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	case llm.CodeEmpty:
		return ErrEmptyResponse
	case llm.CodeService:
		return fmt.Errorf("%w: %v", ErrService, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
}
