package todo

import "context"

// Repository owns the authoritative Todo collection.
//
// Get reports absence through its bool result. Update and Delete return
// ErrNotFound when the id does not exist, regardless of caller checks.
type Repository interface {
	Create(ctx context.Context, t *Todo) (*Todo, error)
	List(ctx context.Context) ([]*Todo, error)
	Get(ctx context.Context, id int64) (*Todo, bool, error)
	Update(ctx context.Context, t *Todo) (*Todo, error)
	Delete(ctx context.Context, id int64) error
}

// Transactor runs fn inside a unit of work when the backend supports one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
