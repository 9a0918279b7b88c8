package reviews

import (
	"errors"
	"time"

	"contract-review-backend/internal/analysis"
)

var ErrNotFound = errors.New("review not found")

// Review statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Failure codes recorded on failed reviews and surfaced in error envelopes.
const (
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeConversion   = "CONVERSION_FAILED"
	ErrorCodeNoText       = "NO_TEXT"
	ErrorCodeUnreadable   = "UNREADABLE_DOCUMENT"
	ErrorCodeLLMTimeout   = "LLM_TIMEOUT"
	ErrorCodeLLMRateLimit = "LLM_RATE_LIMITED"
	ErrorCodeLLMMalformed = "LLM_MALFORMED_RESPONSE"
	ErrorCodeLLMBackend   = "LLM_BACKEND_ERROR"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)

// Review is one persisted review run, completed or failed.
type Review struct {
	ID                  string
	FileName            string
	PartyPerspective    string
	Strictness          string
	Status              string
	Summary             string
	OverallRisk         string
	Result              *analysis.Result
	AnnotationAvailable bool
	AnnotatedPath       string
	ErrorCode           string
	ErrorMessage        string
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

// RequestEcho repeats the caller's inputs back in the response.
type RequestEcho struct {
	FileName         string `json:"fileName"`
	PartyPerspective string `json:"partyPerspective"`
	Strictness       string `json:"strictness"`
}

// Response is the review envelope returned to the caller. DownloadToken is
// empty when no annotated artifact exists (PDF input, or a failed run).
type Response struct {
	ReviewID            string           `json:"reviewId"`
	Result              *analysis.Result `json:"result"`
	AnnotationAvailable bool             `json:"annotationAvailable"`
	DownloadToken       string           `json:"downloadToken,omitempty"`
	RequestEcho         RequestEcho      `json:"requestEcho"`
}
