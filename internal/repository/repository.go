package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cattlegrid/cattlegrid/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateLocation indicates a guard already exists within the proximity
// tolerance of the submitted coordinates.
var ErrDuplicateLocation = errors.New("repository: guard exists near this location")

// DB is the subset of pgxpool.Pool the repositories need. pgxmock's pool
// satisfies it too, which is what the unit tests rely on.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Guards  *GuardsRepository
	Ratings *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool constructs repositories over a pgx pool (or a compatible mock).
func NewWithPool(db DB) *Repository {
	return &Repository{
		Guards:  &GuardsRepository{db: db},
		Ratings: &RatingsRepository{db: db},
	}
}
