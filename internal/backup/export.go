package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/store"
)

// FormatVersion is the snapshot format written in the header line.
const FormatVersion = "1"

// exportPageSize is how many rows are read per store call while exporting.
const exportPageSize = 500

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	CatalogRows   int       `json:"catalog_rows"`
	PersonnelRows int       `json:"personnel_rows"`
}

// record wraps a single JSONL line with a type discriminator. Catalog rows
// use the catalog name as their type; personnel rows use "person".
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Stats counts the rows written by an export.
type Stats struct {
	CatalogRows   int
	PersonnelRows int
}

// ExportJSONL writes every catalog row and personnel record from the store
// as JSONL to w. Catalogs are written in dependency order so a restore can
// insert parents before children.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) (Stats, error) {
	var stats Stats

	catalogs := make(map[model.Catalog][]model.CatalogItem)
	for _, c := range model.Catalogs() {
		items, err := readCatalog(ctx, s, c)
		if err != nil {
			return stats, err
		}
		catalogs[c] = items
		stats.CatalogRows += len(items)
	}

	people, err := readPeople(ctx, s)
	if err != nil {
		return stats, err
	}
	stats.PersonnelRows = len(people)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       FormatVersion,
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		CatalogRows:   stats.CatalogRows,
		PersonnelRows: stats.PersonnelRows,
	}); err != nil {
		return stats, fmt.Errorf("encode header: %w", err)
	}

	for _, c := range model.Catalogs() {
		for _, item := range catalogs[c] {
			if err := enc.Encode(record{Type: string(c), Data: item}); err != nil {
				return stats, fmt.Errorf("encode %s %s: %w", c, item.ID, err)
			}
		}
	}
	for _, p := range people {
		if err := enc.Encode(record{Type: "person", Data: p}); err != nil {
			return stats, fmt.Errorf("encode person %d: %w", p.ID, err)
		}
	}

	return stats, nil
}

func readCatalog(ctx context.Context, s store.Store, c model.Catalog) ([]model.CatalogItem, error) {
	var all []model.CatalogItem
	for page := 1; ; page++ {
		items, total, err := s.ListCatalog(ctx, c, model.CatalogFilter{Page: page, PageSize: exportPageSize})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", c, err)
		}
		all = append(all, items...)
		if len(items) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

func readPeople(ctx context.Context, s store.Store) ([]*model.Person, error) {
	var all []*model.Person
	for {
		people, total, err := s.ListPeople(ctx, exportPageSize, len(all))
		if err != nil {
			return nil, fmt.Errorf("list personnel: %w", err)
		}
		all = append(all, people...)
		if len(people) == 0 || len(all) >= total {
			return all, nil
		}
	}
}
