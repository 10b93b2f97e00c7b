package agents

import (
	"context"
	"errors"
)

var (
	ErrNotFound            = errors.New("agent not found")
	ErrDuplicateExternalID = errors.New("agent external id already mapped")
)

// Repository persists agent records. Every implementation orders ListByOwner
// newest first and returns ErrNotFound from FindByID and Delete when the id
// is unknown.
type Repository interface {
	Create(ctx context.Context, rec NewRecord) (Record, error)
	FindByID(ctx context.Context, id string) (Record, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Record, error)
	Delete(ctx context.Context, id string) error
}
