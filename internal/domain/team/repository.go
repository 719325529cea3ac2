package team

import "context"

// Repository persists teams. Create must enforce name uniqueness and return
// ErrNameTaken when violated.
type Repository interface {
	GetByName(ctx context.Context, name string) (Team, bool, error)
	Create(ctx context.Context, item Team) error
	SetLogoURL(ctx context.Context, id, logoURL string) error
}
