package prediction

import "context"

// Repository persists predictions. Create must enforce one prediction per
// match and return ErrAlreadyExists when violated.
type Repository interface {
	GetByMatchID(ctx context.Context, matchID string) (Prediction, bool, error)
	Create(ctx context.Context, item Prediction) error
	ListByBucket(ctx context.Context, bucket string, limit int) ([]Prediction, error)
}
