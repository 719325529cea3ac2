package settlement

import "context"

// Repository persists settlement records. Create must enforce one record
// per match and return ErrAlreadySettled when violated.
type Repository interface {
	ExistsByMatchID(ctx context.Context, matchID string) (bool, error)
	Create(ctx context.Context, item Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
