package analysis

import (
	"strings"
)

// extractJSONPayload recovers the JSON payload from raw model output that
// may wrap it in prose or fenced code blocks. Preference order: a fence
// explicitly labeled json, then any fence, then the raw text. The scan is
// line-based so literal backtick sequences inside the payload do not split
// it the way naive string splitting would.
func extractJSONPayload(raw string) string {
	if body, ok := scanFence(raw, true); ok {
		return body
	}
	if body, ok := scanFence(raw, false); ok {
		return body
	}
	return strings.TrimSpace(raw)
}

// scanFence finds the first fenced block, optionally requiring a json label
// on the opening fence. An unterminated fence captures through end of input.
func scanFence(raw string, labeled bool) (string, bool) {
	lines := strings.Split(raw, "\n")
	open := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}
		if open == -1 {
			label := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
			if labeled && label != "json" {
				continue
			}
			open = i
			continue
		}
		// Closing fence.
		return strings.TrimSpace(strings.Join(lines[open+1:i], "\n")), true
	}
	if open != -1 {
		return strings.TrimSpace(strings.Join(lines[open+1:], "\n")), true
	}
	return "", false
}

// stripSingleFence removes one optional fenced-code wrapper. Simpler than
// extractJSONPayload; used for the matcher's smaller responses.
func stripSingleFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	body := lines[1:]
	for i := len(body) - 1; i >= 0; i-- {
		if strings.TrimSpace(body[i]) == "```" {
			body = body[:i]
			break
		}
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
