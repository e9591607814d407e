package storage

import (
	"context"
	"errors"
	"time"

	"github.com/kalambet/jobportal/internal/filter"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Operator is a back-office account (admin or sales) that signs in through the
// operator login forms.
type Operator struct {
	Email        string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Backend is what the rest of the portal needs from a database. Both the SQLite
// Store and the Postgres PGStore implement it.
type Backend interface {
	SeedCollection(ctx context.Context, collection string, records []filter.Record) (bool, error)
	ListRecords(ctx context.Context, collection string) ([]filter.Record, error)
	GetRecord(ctx context.Context, collection, id string) (filter.Record, error)
	UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (filter.Record, error)
	DeleteRecord(ctx context.Context, collection, id string) error
	Collections(ctx context.Context) ([]string, error)

	UpsertOperator(ctx context.Context, op Operator) error
	GetOperator(ctx context.Context, email string) (Operator, error)
	ListOperators(ctx context.Context) ([]Operator, error)

	Close() error
}

// Collection adapts one collection of b to filter.Source.
func Collection(b Backend, name string) filter.Source {
	return collectionSource{b: b, name: name}
}

type collectionSource struct {
	b    Backend
	name string
}

func (c collectionSource) List(ctx context.Context) ([]filter.Record, error) {
	return c.b.ListRecords(ctx, c.name)
}
