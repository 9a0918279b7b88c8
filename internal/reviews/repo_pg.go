package reviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"contract-review-backend/internal/analysis"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a review record.
func (r *PGRepo) Create(ctx context.Context, review Review) error {
	const query = `
INSERT INTO reviews (
    id,
    file_name,
    party_perspective,
    strictness,
    status,
    summary,
    overall_risk,
    result,
    annotation_available,
    annotated_path,
    error_code,
    error_message,
    created_at,
    completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	var resultJSON any
	if review.Result != nil {
		data, err := json.Marshal(review.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = data
	}

	var completedAt sql.NullTime
	if review.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *review.CompletedAt, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		review.ID,
		review.FileName,
		review.PartyPerspective,
		review.Strictness,
		review.Status,
		review.Summary,
		review.OverallRisk,
		resultJSON,
		review.AnnotationAvailable,
		review.AnnotatedPath,
		review.ErrorCode,
		review.ErrorMessage,
		review.CreatedAt,
		completedAt,
	)
	return err
}

// GetByID returns one review.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Review, error) {
	const query = `
SELECT id, file_name, party_perspective, strictness, status, summary, overall_risk, result, annotation_available, annotated_path, error_code, error_message, created_at, completed_at
FROM reviews
WHERE id = $1`
	review, err := scanReview(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, err
	}
	return review, nil
}

// List returns reviews newest first, up to limit.
func (r *PGRepo) List(ctx context.Context, limit int) ([]Review, error) {
	const query = `
SELECT id, file_name, party_perspective, strictness, status, summary, overall_risk, result, annotation_available, annotated_path, error_code, error_message, created_at, completed_at
FROM reviews
ORDER BY created_at DESC
LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, review)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (Review, error) {
	var review Review
	var resultJSON []byte
	var completedAt sql.NullTime
	err := row.Scan(
		&review.ID,
		&review.FileName,
		&review.PartyPerspective,
		&review.Strictness,
		&review.Status,
		&review.Summary,
		&review.OverallRisk,
		&resultJSON,
		&review.AnnotationAvailable,
		&review.AnnotatedPath,
		&review.ErrorCode,
		&review.ErrorMessage,
		&review.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return Review{}, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		review.CompletedAt = &t
	}
	if len(resultJSON) > 0 {
		var result analysis.Result
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return Review{}, fmt.Errorf("unmarshal result: %w", err)
		}
		review.Result = &result
	}
	return review, nil
}
