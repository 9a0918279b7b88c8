package reviews

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"contract-review-backend/internal/analysis"
	"contract-review-backend/internal/convert"
	"contract-review-backend/internal/docx"
	"contract-review-backend/internal/extract"
	"contract-review-backend/internal/shared/storage/object"
	"contract-review-backend/internal/shared/telemetry"
	"contract-review-backend/internal/shared/util"
)

// ErrUnsupportedType rejects uploads outside the extension allowlist.
var ErrUnsupportedType = errors.New("unsupported file type, use .doc, .docx or .pdf")

// Service runs the review pipeline: stage, normalize, extract, analyze,
// annotate, persist.
type Service struct {
	Store     object.ObjectStore
	Converter convert.Converter
	Extractor extract.Extractor
	Engine    *analysis.Engine
	Matcher   *analysis.Matcher
	Repo      Repo
	Downloads *DownloadStore
}

// ProcessInput is one uploaded document plus its review configuration.
type ProcessInput struct {
	FileName string
	File     io.Reader
	Config   analysis.ReviewConfig
}

// Process runs a full review. Analysis failures are terminal and recorded as
// failed reviews; annotation failures only degrade the response.
func (s *Service) Process(ctx context.Context, in ProcessInput) (*Response, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(in.FileName))
	switch ext {
	case ".doc", ".docx", ".pdf":
	default:
		return nil, ErrUnsupportedType
	}

	reviewID := uuid.NewString()
	createdAt := time.Now().UTC()

	response, err := s.run(ctx, reviewID, in, ext)
	if err != nil {
		s.recordFailure(ctx, reviewID, in, createdAt, err)
		return nil, err
	}
	return response, nil
}

func (s *Service) run(ctx context.Context, reviewID string, in ProcessInput, ext string) (*Response, error) {
	key, size, err := s.Store.Save(ctx, in.FileName, in.File)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	stagedPath, err := s.Store.Path(key)
	if err != nil {
		return nil, fmt.Errorf("resolve staged path: %w", err)
	}
	telemetry.Info("review.staged", map[string]any{
		"review_id": reviewID,
		"file_name": in.FileName,
		"bytes":     size,
	})

	docxPath := ""
	switch ext {
	case ".docx":
		docxPath = stagedPath
	case ".doc":
		docxPath, err = s.Converter.ToDocx(ctx, stagedPath)
		if err != nil {
			return nil, err
		}
	}

	var text string
	if ext == ".pdf" {
		text, err = extract.FromPDF(stagedPath)
	} else {
		text, err = s.Extractor.FromDocx(ctx, docxPath)
	}
	if err != nil {
		return nil, err
	}
	if text, err = extract.CheckText(text); err != nil {
		return nil, err
	}

	result, err := s.Engine.Analyze(ctx, text, in.Config)
	if err != nil {
		return nil, err
	}

	annotated := false
	downloadToken := ""
	annotatedPath := ""
	if docxPath != "" {
		annotated, annotatedPath = s.annotate(ctx, reviewID, docxPath, in.FileName, result)
		if annotatedPath != "" {
			downloadToken = s.Downloads.Issue(annotatedPath, downloadFileName(in.FileName))
		}
	}

	completedAt := time.Now().UTC()
	review := Review{
		ID:                  reviewID,
		FileName:            in.FileName,
		PartyPerspective:    string(in.Config.Party),
		Strictness:          string(in.Config.Strictness),
		Status:              StatusCompleted,
		Summary:             result.Summary,
		OverallRisk:         result.OverallRisk,
		Result:              result,
		AnnotationAvailable: annotated,
		AnnotatedPath:       annotatedPath,
		CreatedAt:           completedAt,
		CompletedAt:         &completedAt,
	}
	if err := s.Repo.Create(ctx, review); err != nil {
		telemetry.Error("review.persist_failed", map[string]any{
			"review_id": reviewID,
			"err":       err.Error(),
		})
	}

	return &Response{
		ReviewID:            reviewID,
		Result:              result,
		AnnotationAvailable: annotated,
		DownloadToken:       downloadToken,
		RequestEcho: RequestEcho{
			FileName:         in.FileName,
			PartyPerspective: string(in.Config.Party),
			Strictness:       string(in.Config.Strictness),
		},
	}, nil
}

// annotate writes the reviewed artifact next to the staged docx. Every
// failure path still tries to leave a downloadable file behind.
func (s *Service) annotate(ctx context.Context, reviewID, docxPath, fileName string, result *analysis.Result) (bool, string) {
	outputPath := filepath.Join(filepath.Dir(docxPath), "reviewed_"+filepath.Base(docxPath))

	paragraphs, err := docx.IndexParagraphs(docxPath)
	if err != nil {
		telemetry.Error("review.index_failed", map[string]any{
			"review_id": reviewID,
			"err":       err.Error(),
		})
		if copyErr := copyFileForDownload(docxPath, outputPath); copyErr != nil {
			return false, ""
		}
		return false, outputPath
	}

	refs := make([]analysis.ParagraphRef, len(paragraphs))
	for i, p := range paragraphs {
		refs[i] = analysis.ParagraphRef{Index: p.Index, Text: p.Text}
	}
	anchors := s.Matcher.Match(ctx, refs, result)
	comments := buildComments(result, anchors)

	ok, err := docx.AddComments(docxPath, outputPath, comments)
	if err != nil {
		telemetry.Error("review.annotate_unrecoverable", map[string]any{
			"review_id": reviewID,
			"err":       err.Error(),
		})
		return false, ""
	}
	telemetry.Info("review.annotated", map[string]any{
		"review_id": reviewID,
		"comments":  len(comments),
		"annotated": ok,
	})
	return ok, outputPath
}

func (s *Service) recordFailure(ctx context.Context, reviewID string, in ProcessInput, createdAt time.Time, cause error) {
	_, code, message := ClassifyFailure(cause)
	completedAt := time.Now().UTC()
	review := Review{
		ID:               reviewID,
		FileName:         in.FileName,
		PartyPerspective: string(in.Config.Party),
		Strictness:       string(in.Config.Strictness),
		Status:           StatusFailed,
		ErrorCode:        code,
		ErrorMessage:     message,
		CreatedAt:        createdAt,
		CompletedAt:      &completedAt,
	}
	if err := s.Repo.Create(ctx, review); err != nil {
		telemetry.Error("review.persist_failed", map[string]any{
			"review_id": reviewID,
			"err":       err.Error(),
		})
	}
}

// GetReview returns one persisted review record.
func (s *Service) GetReview(ctx context.Context, id string) (Review, error) {
	return s.Repo.GetByID(ctx, id)
}

// ListReviews returns recent reviews, newest first.
func (s *Service) ListReviews(ctx context.Context, limit int) ([]Review, error) {
	return s.Repo.List(ctx, limit)
}

// ClassifyFailure maps a pipeline error to an HTTP status, a stable error
// code, and a message safe to show callers.
func ClassifyFailure(err error) (status int, code, message string) {
	var parseErr *analysis.ParseError
	switch {
	case errors.Is(err, analysis.ErrInvalidConfig), errors.Is(err, ErrUnsupportedType):
		return http.StatusBadRequest, ErrorCodeValidation, err.Error()
	case errors.Is(err, convert.ErrTimeout):
		return http.StatusGatewayTimeout, ErrorCodeConversion, convert.ErrTimeout.Error()
	case errors.Is(err, convert.ErrFailed), errors.Is(err, convert.ErrOutputMissing):
		return http.StatusUnprocessableEntity, ErrorCodeConversion, "document conversion failed"
	case errors.Is(err, extract.ErrNoText):
		return http.StatusUnprocessableEntity, ErrorCodeNoText, extract.ErrNoText.Error()
	case errors.Is(err, extract.ErrFailed), errors.Is(err, docx.ErrParse):
		return http.StatusUnprocessableEntity, ErrorCodeUnreadable, "could not read the document"
	case errors.Is(err, analysis.ErrTimeout):
		return http.StatusGatewayTimeout, ErrorCodeLLMTimeout, analysis.ErrTimeout.Error()
	case errors.Is(err, analysis.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorCodeLLMRateLimit, analysis.ErrRateLimited.Error()
	case errors.As(err, &parseErr), errors.Is(err, analysis.ErrEmptyResponse):
		return http.StatusBadGateway, ErrorCodeLLMMalformed, "the AI service returned an unusable response, try again"
	case errors.Is(err, analysis.ErrNetwork), errors.Is(err, analysis.ErrService):
		return http.StatusBadGateway, ErrorCodeLLMBackend, "the AI service is unavailable, try again later"
	default:
		return http.StatusInternalServerError, ErrorCodeInternal, "internal error"
	}
}

func downloadFileName(uploadName string) string {
	sanitized, err := util.SanitizeFileName(uploadName)
	if err != nil {
		sanitized = "contract.docx"
	}
	base := strings.TrimSuffix(sanitized, filepath.Ext(sanitized))
	return "reviewed_" + base + ".docx"
}

func copyFileForDownload(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
