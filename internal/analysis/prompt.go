package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"contract-review-backend/internal/taxonomy"
)

// maxContractChars caps the contract text embedded in the analysis prompt.
// Large enough for typical contracts, small enough to bound cost and latency.
const maxContractChars = 15000

var strictnessBlocks = map[Strictness]string{
	StrictnessFriendly: `FRIENDLY review approach:
- Accept most standard terms without comment
- Only flag major risks that could cause significant harm
- Suggest minimal, non-confrontational changes
- Focus on clarifications rather than substantive changes
- Tone: collaborative and trusting`,

	StrictnessModerate: `MODERATE review approach:
- Flag both major and moderate risks
- Suggest balanced modifications that protect interests without being aggressive
- Recommend industry-standard protections for technology companies
- Point out one-sided provisions but suggest reasonable compromises
- Tone: professional and fair`,

	StrictnessAggressive: `AGGRESSIVE review approach:
- Flag all potentially unfavorable provisions
- Push hard for maximum protection
- Challenge any one-sided terms
- Suggest alternative language that strongly favors the client
- Negotiate every material point
- Tone: assertive and protective`,
}

var partyBlocks = map[PartyPerspective]string{
	PartyVendor:   "You represent the VENDOR/PROVIDER (the party selling software or services). Focus on protecting the vendor's interests: limiting liability, retaining IP rights, ensuring payment, and minimizing warranty obligations.",
	PartyCustomer: "You represent the CUSTOMER/LICENSEE (the party buying software or services). Focus on protecting the customer's interests: ensuring deliverable quality, securing broad licenses, protecting data, and maintaining termination rights.",
}

// truncate cuts s at limit bytes, backing up so a multi-byte rune is never
// split at the cut point.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// BuildAnalysisPrompt assembles the single analysis prompt: taxonomy in
// priority order, strictness and party instruction blocks, and the contract
// text truncated to the character budget.
func BuildAnalysisPrompt(contractText string, cfg ReviewConfig) string {
	var clauses strings.Builder
	for i, c := range taxonomy.Clauses {
		if i > 0 {
			clauses.WriteByte('\n')
		}
		fmt.Fprintf(&clauses, "%d. %s: %s", c.Priority, c.Name, c.Description)
	}

	contractText = truncate(contractText, maxContractChars)

	return fmt.Sprintf(`You are an expert technology contracts attorney reviewing an IT agreement.

%s

%s

Analyze the following contract and provide a detailed review. For each issue found, include:
1. The clause category (from the priority list below)
2. The exact quote from the contract
3. The risk level (HIGH, MEDIUM, or LOW)
4. Why this is a concern from the %s's perspective
5. Specific suggested language changes

PRIORITY CLAUSE CATEGORIES (analyze in this order):
%s

Respond in this exact JSON format:
{
    "summary": "Brief 2-3 sentence overall assessment of the contract",
    "overall_risk": "HIGH|MEDIUM|LOW",
    "issues": [
        {
            "clause_category": "Name from priority list",
            "priority": 1-8,
            "quote": "Exact text from contract",
            "risk_level": "HIGH|MEDIUM|LOW",
            "concern": "Why this is problematic for the %s",
            "recommendation": "Specific suggested changes or alternative language",
            "principle": "Relevant contract drafting principle if applicable"
        }
    ],
    "missing_clauses": [
        {
            "clause_category": "Name of missing clause",
            "priority": 1-8,
            "importance": "Why this should be added",
            "suggested_language": "Draft language to add"
        }
    ],
    "positive_aspects": ["List of provisions that are already favorable"]
}

CONTRACT TEXT:
%s`,
		partyBlocks[cfg.Party],
		strictnessBlocks[cfg.Strictness],
		cfg.Party,
		clauses.String(),
		cfg.Party,
		contractText,
	)
}
