package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// ErrDuplicatePINFL is returned when a personnel record with the same PINFL
// already exists.
var ErrDuplicatePINFL = errors.New("pinfl already registered")

// Store defines the persistence interface for catalogs and personnel.
type Store interface {
	// Catalogs
	ListCatalog(ctx context.Context, catalog model.Catalog, filter model.CatalogFilter) ([]model.CatalogItem, int, error) // returns rows, total count, error

	// Personnel
	CreatePerson(ctx context.Context, p *model.Person) error
	GetPerson(ctx context.Context, id int64) (*model.Person, error)
	FindPersonByPINFL(ctx context.Context, pinfl string) (*model.Person, error)
	ListPeople(ctx context.Context, limit, offset int) ([]*model.Person, int, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
