package analysis

import (
	"context"
	"strings"
	"testing"

	"contract-review-backend/internal/llm"
)

func matcherFixture() ([]ParagraphRef, *Result) {
	paragraphs := []ParagraphRef{
		{Index: 0, Text: "Payment is due in 30 days."},
		{Index: 1, Text: "Liability shall be unlimited."},
		{Index: 2, Text: "This agreement is governed by Delaware law."},
	}
	result := &Result{
		Issues: []Issue{
			{ClauseCategory: "Limitation of Liability", Concern: "unlimited exposure"},
			{ClauseCategory: "Payment Terms", Concern: "short payment window"},
		},
		MissingClauses: []MissingClause{
			{ClauseCategory: "Termination", Importance: "no exit right"},
		},
	}
	return paragraphs, result
}

func TestMatchMapsInRangeIndices(t *testing.T) {
	paragraphs, result := matcherFixture()
	client := &stubClient{response: `{"Issue 0": 1, "Issue 1": 0, "Missing 0": -1}`}
	matcher := NewMatcher(client, "gpt-4o-mini")

	anchors := matcher.Match(context.Background(), paragraphs, result)
	if got := anchors[FindingKey{Kind: KindIssue, Ordinal: 0}]; got != 1 {
		t.Errorf("issue 0 anchored to %d, want 1", got)
	}
	if got := anchors[FindingKey{Kind: KindIssue, Ordinal: 1}]; got != 0 {
		t.Errorf("issue 1 anchored to %d, want 0", got)
	}
	if _, ok := anchors[FindingKey{Kind: KindMissing, Ordinal: 0}]; ok {
		t.Error("missing clause with -1 should stay unanchored")
	}
	if client.lastReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", client.lastReq.Model)
	}
	if client.lastReq.Temperature == nil || *client.lastReq.Temperature != 0.3 {
		t.Errorf("temperature = %v", client.lastReq.Temperature)
	}
}

func TestMatchDropsOutOfRangeIndex(t *testing.T) {
	paragraphs, result := matcherFixture()
	client := &stubClient{response: `{"Issue 0": 99, "Issue 1": 2}`}
	matcher := NewMatcher(client, "gpt-4o-mini")

	anchors := matcher.Match(context.Background(), paragraphs, result)
	if _, ok := anchors[FindingKey{Kind: KindIssue, Ordinal: 0}]; ok {
		t.Error("out-of-range index 99 should be dropped")
	}
	if got := anchors[FindingKey{Kind: KindIssue, Ordinal: 1}]; got != 2 {
		t.Errorf("issue 1 anchored to %d, want 2", got)
	}
}

func TestMatchBackendFailureDegradesToEmpty(t *testing.T) {
	paragraphs, result := matcherFixture()
	client := &stubClient{err: &llm.Error{Code: llm.CodeNetwork, Message: "down"}}
	matcher := NewMatcher(client, "gpt-4o-mini")

	anchors := matcher.Match(context.Background(), paragraphs, result)
	if len(anchors) != 0 {
		t.Errorf("expected empty map, got %v", anchors)
	}
}

func TestMatchMalformedResponseDegradesToEmpty(t *testing.T) {
	paragraphs, result := matcherFixture()
	client := &stubClient{response: "no json here"}
	matcher := NewMatcher(client, "gpt-4o-mini")

	anchors := matcher.Match(context.Background(), paragraphs, result)
	if len(anchors) != 0 {
		t.Errorf("expected empty map, got %v", anchors)
	}
}

func TestMatchSkipsCallWithoutInputs(t *testing.T) {
	client := &stubClient{response: `{}`}
	matcher := NewMatcher(client, "gpt-4o-mini")

	_, result := matcherFixture()
	if anchors := matcher.Match(context.Background(), nil, result); len(anchors) != 0 {
		t.Errorf("expected empty map for no paragraphs, got %v", anchors)
	}
	paragraphs, _ := matcherFixture()
	if anchors := matcher.Match(context.Background(), paragraphs, &Result{}); len(anchors) != 0 {
		t.Errorf("expected empty map for no findings, got %v", anchors)
	}
	if client.calls != 0 {
		t.Errorf("backend called %d times with empty inputs", client.calls)
	}
}

func TestBuildMatchPromptTruncatesParagraphText(t *testing.T) {
	paragraphs := []ParagraphRef{{Index: 0, Text: strings.Repeat("a", 500)}}
	result := &Result{Issues: []Issue{{ClauseCategory: "X", Concern: "y"}}}

	prompt := buildMatchPrompt(paragraphs, result)
	if strings.Contains(prompt, strings.Repeat("a", 201)) {
		t.Error("paragraph text not truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("a", 200)+"...") {
		t.Error("truncation marker missing")
	}
}
