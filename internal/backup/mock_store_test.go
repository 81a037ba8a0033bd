package backup

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/store"
)

// mockStore is an in-memory store.Store for export tests.
type mockStore struct {
	catalogs map[model.Catalog][]model.CatalogItem
	people   []*model.Person

	listCalls int
	listErr   error
}

func newMockStore() *mockStore {
	return &mockStore{catalogs: make(map[model.Catalog][]model.CatalogItem)}
}

func (m *mockStore) ListCatalog(_ context.Context, c model.Catalog, f model.CatalogFilter) ([]model.CatalogItem, int, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	items := m.catalogs[c]
	start := min(f.Offset(), len(items))
	end := min(start+f.PageSize, len(items))
	return items[start:end], len(items), nil
}

func (m *mockStore) CreatePerson(_ context.Context, p *model.Person) error {
	m.people = append(m.people, p)
	return nil
}

func (m *mockStore) GetPerson(_ context.Context, id int64) (*model.Person, error) {
	for _, p := range m.people {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) FindPersonByPINFL(_ context.Context, pinfl string) (*model.Person, error) {
	for _, p := range m.people {
		if p.PINFL == pinfl {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStore) ListPeople(_ context.Context, limit, offset int) ([]*model.Person, int, error) {
	sorted := append([]*model.Person(nil), m.people...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LastName < sorted[j].LastName })
	start := min(offset, len(sorted))
	end := min(start+limit, len(sorted))
	return sorted[start:end], len(sorted), nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

var errBoom = errors.New("boom")
