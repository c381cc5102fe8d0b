package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the read interface over the product collaborator
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDs resolves a candidate set in one read; missing IDs are
	// silently absent from the result.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
