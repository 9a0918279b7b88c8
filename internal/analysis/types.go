package analysis

import (
	"errors"
	"fmt"
)

// PartyPerspective selects whose interests the review protects.
type PartyPerspective string

const (
	PartyVendor   PartyPerspective = "vendor"
	PartyCustomer PartyPerspective = "customer"
)

// Strictness selects how hard the review pushes back.
type Strictness string

const (
	StrictnessFriendly   Strictness = "friendly"
	StrictnessModerate   Strictness = "moderate"
	StrictnessAggressive Strictness = "aggressive"
)

// ReviewConfig carries the per-request review parameters. Invalid values are
// rejected before any processing begins.
type ReviewConfig struct {
	Party      PartyPerspective `json:"partyPerspective"`
	Strictness Strictness       `json:"strictness"`
}

// ErrInvalidConfig marks review configurations rejected before any work.
var ErrInvalidConfig = errors.New("invalid review configuration")

// Validate checks both enumerations.
func (c ReviewConfig) Validate() error {
	switch c.Party {
	case PartyVendor, PartyCustomer:
	default:
		return fmt.Errorf("%w: unknown party perspective %q", ErrInvalidConfig, c.Party)
	}
	switch c.Strictness {
	case StrictnessFriendly, StrictnessModerate, StrictnessAggressive:
	default:
		return fmt.Errorf("%w: unknown strictness %q", ErrInvalidConfig, c.Strictness)
	}
	return nil
}

// Issue is a problem located in existing contract text. Quote is expected to
// be an exact substring of the source but is not validated as such.
type Issue struct {
	ClauseCategory string `json:"clause_category"`
	Priority       int    `json:"priority"`
	Quote          string `json:"quote"`
	RiskLevel      string `json:"risk_level"`
	Concern        string `json:"concern"`
	Recommendation string `json:"recommendation"`
	Principle      string `json:"principle,omitempty"`
}

// MissingClause is an absent but recommended provision.
type MissingClause struct {
	ClauseCategory    string `json:"clause_category"`
	Priority          int    `json:"priority"`
	Importance        string `json:"importance"`
	SuggestedLanguage string `json:"suggested_language"`
}

// Result is the structured analysis produced once per request. Ordinals of
// Issues and MissingClauses are 0-based in emission order and stable; the
// matcher and annotator key off them.
type Result struct {
	Summary         string          `json:"summary"`
	OverallRisk     string          `json:"overall_risk"`
	Issues          []Issue         `json:"issues"`
	MissingClauses  []MissingClause `json:"missing_clauses"`
	PositiveAspects []string        `json:"positive_aspects"`
}

// FindingKind distinguishes the two finding variants.
type FindingKind string

const (
	KindIssue   FindingKind = "issue"
	KindMissing FindingKind = "missing"
)

// FindingKey addresses one finding by variant and emission ordinal.
type FindingKey struct {
	Kind    FindingKind
	Ordinal int
}

// Unanchored is the sentinel paragraph index for findings with no match.
const Unanchored = -1

// Typed analysis failures. Every variant carries a message distinct enough
// for the caller to act on; none are retried here.
var (
	ErrEmptyResponse = errors.New("the AI service returned an empty response")
	ErrTimeout       = errors.New("the AI analysis request timed out; the contract may be too large, try a smaller document")
	ErrRateLimited   = errors.New("AI service rate limit exceeded; wait a moment and try again")
	ErrNetwork       = errors.New("network error reaching the AI service")
	ErrService       = errors.New("the AI service rejected the request")
	ErrUnknown       = errors.New("unexpected error during analysis")
)

// ParseError reports model output that failed schema parsing. Raw carries
// the unparsed text for diagnostics; no partial result is ever returned.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse analysis: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
