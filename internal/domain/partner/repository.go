package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository is the read interface over the customer collaborator
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// FindAllIDs returns every customer ID; batch recomputation iterates
	// this set one customer at a time.
	FindAllIDs(ctx context.Context) ([]uuid.UUID, error)
	Count(ctx context.Context) (int64, error)
}
