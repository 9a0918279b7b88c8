package reviews

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo, used when no database
// is configured.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Review
	ordered []string // insertion order, oldest first
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Review)}
}

// Create stores a review record.
func (r *MemoryRepo) Create(ctx context.Context, review Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[review.ID]; !exists {
		r.ordered = append(r.ordered, review.ID)
	}
	r.byID[review.ID] = review
	return nil
}

// GetByID returns one review.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.byID[id]
	if !ok {
		return Review{}, ErrNotFound
	}
	return review, nil
}

// List returns reviews newest first, up to limit.
func (r *MemoryRepo) List(ctx context.Context, limit int) ([]Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Review, 0, limit)
	for i := len(r.ordered) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.byID[r.ordered[i]])
	}
	return out, nil
}
