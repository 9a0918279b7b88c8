package reviews

import (
	"fmt"

	"contract-review-backend/internal/analysis"
	"contract-review-backend/internal/docx"
)

// buildComments turns analysis findings into comment specs, issues first,
// in finding order. Unanchored issues land on the first paragraph; missing
// clauses always land on the last.
func buildComments(result *analysis.Result, anchors map[analysis.FindingKey]int) []docx.Comment {
	comments := make([]docx.Comment, 0, len(result.Issues)+len(result.MissingClauses))

	for i, issue := range result.Issues {
		paragraph := analysis.Unanchored
		if idx, ok := anchors[analysis.FindingKey{Kind: analysis.KindIssue, Ordinal: i}]; ok {
			paragraph = idx
		}
		comments = append(comments, docx.Comment{
			Text: fmt.Sprintf("[%s] %s\n\nCONCERN: %s\n\nRECOMMENDATION: %s",
				orDefault(issue.RiskLevel, "REVIEW"),
				orDefault(issue.ClauseCategory, "General"),
				orDefault(issue.Concern, "N/A"),
				orDefault(issue.Recommendation, "N/A")),
			Paragraph: paragraph,
		})
	}

	for i, missing := range result.MissingClauses {
		paragraph := analysis.Unanchored
		if idx, ok := anchors[analysis.FindingKey{Kind: analysis.KindMissing, Ordinal: i}]; ok {
			paragraph = idx
		}
		comments = append(comments, docx.Comment{
			Text: fmt.Sprintf("[MISSING CLAUSE] %s\n\nIMPORTANCE: %s\n\nSUGGESTED: %s",
				orDefault(missing.ClauseCategory, "General"),
				orDefault(missing.Importance, "N/A"),
				orDefault(missing.SuggestedLanguage, "N/A")),
			Paragraph:      paragraph,
			FallbackToLast: true,
		})
	}

	return comments
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
