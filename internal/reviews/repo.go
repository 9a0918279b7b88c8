package reviews

import "context"

// Repo defines persistence operations for review records.
type Repo interface {
	Create(ctx context.Context, review Review) error
	GetByID(ctx context.Context, id string) (Review, error)
	List(ctx context.Context, limit int) ([]Review, error)
}
