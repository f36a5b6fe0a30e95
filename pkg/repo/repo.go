// Package repo defines the generic Repository interface and list options.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no entity carries the requested ID.
var ErrNotFound = errors.New("repo: not found")

// Repository is a generic append-only store. Entities written through it are
// never updated in place; history stays queryable.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
}

// ListOpts controls pagination and filtering for List operations. Filter
// entries match node properties exactly.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
}
