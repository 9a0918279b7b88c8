package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"contract-review-backend/internal/llm"
	"contract-review-backend/internal/shared/telemetry"
)

const (
	matcherMaxParagraphs  = 50
	matcherParaTextLimit  = 200
	matcherMaxTokens      = 1000
	matcherRequestTimeout = 30 * time.Second
)

// ParagraphRef is the matcher's view of an indexed paragraph.
type ParagraphRef struct {
	Index int
	Text  string
}

// Matcher aligns findings to the paragraphs they concern with a second,
// narrower LLM call. Matching is an enhancement, not a correctness
// requirement: every failure degrades to an empty map and is only logged.
type Matcher struct {
	Client llm.Client
	Model  string
}

// NewMatcher constructs a Matcher from an explicit client and model.
func NewMatcher(client llm.Client, model string) *Matcher {
	return &Matcher{Client: client, Model: model}
}

// Match returns a finding-to-paragraph map. Indices outside the paragraph
// range are treated as unanchored and omitted. Never returns an error.
func (m *Matcher) Match(ctx context.Context, paragraphs []ParagraphRef, result *Result) map[FindingKey]int {
	anchors := map[FindingKey]int{}
	if len(paragraphs) == 0 || result == nil {
		return anchors
	}
	if len(result.Issues) == 0 && len(result.MissingClauses) == 0 {
		return anchors
	}

	prompt := buildMatchPrompt(paragraphs, result)

	ctx, cancel := context.WithTimeout(ctx, matcherRequestTimeout)
	defer cancel()

	temp := float32(0.3)
	raw, err := m.Client.Complete(ctx, llm.Request{
		Model:       m.Model,
		Prompt:      prompt,
		MaxTokens:   matcherMaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		telemetry.Error("matcher.backend_failed", map[string]any{"err": err.Error()})
		return map[FindingKey]int{}
	}

	var mapping map[string]int
	if err := json.Unmarshal([]byte(stripSingleFence(raw)), &mapping); err != nil {
		telemetry.Error("matcher.parse_failed", map[string]any{"err": err.Error(), "raw_len": len(raw)})
		return map[FindingKey]int{}
	}

	limit := len(paragraphs)
	for i := range result.Issues {
		if idx, ok := mapping[fmt.Sprintf("Issue %d", i)]; ok && idx >= 0 && idx < limit {
			anchors[FindingKey{Kind: KindIssue, Ordinal: i}] = idx
		}
	}
	for i := range result.MissingClauses {
		if idx, ok := mapping[fmt.Sprintf("Missing %d", i)]; ok && idx >= 0 && idx < limit {
			anchors[FindingKey{Kind: KindMissing, Ordinal: i}] = idx
		}
	}
	return anchors
}

func buildMatchPrompt(paragraphs []ParagraphRef, result *Result) string {
	if len(paragraphs) > matcherMaxParagraphs {
		paragraphs = paragraphs[:matcherMaxParagraphs]
	}

	var paras strings.Builder
	for i, p := range paragraphs {
		if i > 0 {
			paras.WriteString("\n\n")
		}
		text := p.Text
		if len(text) > matcherParaTextLimit {
			text = truncate(text, matcherParaTextLimit) + "..."
		}
		fmt.Fprintf(&paras, "[Paragraph %d]: %s", p.Index, text)
	}

	var findings strings.Builder
	for i, issue := range result.Issues {
		fmt.Fprintf(&findings, "\n\nIssue %d: %s - %s", i, issue.ClauseCategory, issue.Concern)
	}
	for i, missing := range result.MissingClauses {
		fmt.Fprintf(&findings, "\n\nMissing %d: %s - %s", i, missing.ClauseCategory, missing.Importance)
	}

	return fmt.Sprintf(`You are analyzing a contract document. Below are the paragraphs from the document and issues identified during review.

PARAGRAPHS:
%s

ISSUES TO MATCH:
%s

For each issue or missing clause, identify which paragraph number it most closely relates to. If an issue relates to a missing clause (something that should be in the contract but isn't), return -1 for that issue.

Respond with ONLY a JSON object mapping each issue/missing to a paragraph index. Format:
{
  "Issue 0": paragraph_index,
  "Issue 1": paragraph_index,
  "Missing 0": -1
}

Use -1 for missing clauses or when no good match is found.`, paras.String(), findings.String())
}
