package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanCatalogItemWithTotal scans a catalog row with a leading total_count.
func scanCatalogItemWithTotal(row scannable) (model.CatalogItem, int, error) {
	var (
		item       model.CatalogItem
		total      int
		id         int64
		parentID   sql.NullInt64
		parentName sql.NullString
	)
	if err := row.Scan(&total, &id, &item.Name, &parentID, &parentName); err != nil {
		return model.CatalogItem{}, 0, err
	}
	item.ID = model.IDFromInt(id)
	item.ParentID = idFromNull(parentID)
	item.ParentName = parentName.String
	return item, total, nil
}

// scanPerson scans a single row into a model.Person.
// The row must contain columns in the order defined by personColumns.
func scanPerson(row scannable) (*model.Person, error) {
	var p model.Person
	var (
		middleName sql.NullString
		rankID     sql.NullInt64
		unitID     sql.NullInt64
		positionID sql.NullInt64
		rankName   sql.NullString
		unitName   sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.PINFL,
		&p.FirstName,
		&p.LastName,
		&middleName,
		&rankID,
		&unitID,
		&positionID,
		&rankName,
		&unitName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.MiddleName = middleName.String
	p.RankID = idFromNull(rankID)
	p.UnitID = idFromNull(unitID)
	p.PositionID = idFromNull(positionID)
	p.RankName = rankName.String
	p.UnitName = unitName.String
	return &p, nil
}

// scanPersonWithTotal scans a row that has a leading total_count column
// followed by the standard person columns.
func scanPersonWithTotal(row scannable) (*model.Person, int, error) {
	var total int
	var p model.Person
	var (
		middleName sql.NullString
		rankID     sql.NullInt64
		unitID     sql.NullInt64
		positionID sql.NullInt64
		rankName   sql.NullString
		unitName   sql.NullString
	)

	err := row.Scan(
		&total,
		&p.ID,
		&p.PINFL,
		&p.FirstName,
		&p.LastName,
		&middleName,
		&rankID,
		&unitID,
		&positionID,
		&rankName,
		&unitName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, 0, err
	}

	p.MiddleName = middleName.String
	p.RankID = idFromNull(rankID)
	p.UnitID = idFromNull(unitID)
	p.PositionID = idFromNull(positionID)
	p.RankName = rankName.String
	p.UnitName = unitName.String
	return &p, total, nil
}

// nullString converts an empty string to a NULL sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullID converts an empty id to NULL and anything else to its integer value.
func nullID(id model.ID) (sql.NullInt64, error) {
	if id.IsZero() {
		return sql.NullInt64{}, nil
	}
	n, err := id.Int64()
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func idFromNull(n sql.NullInt64) model.ID {
	if !n.Valid {
		return ""
	}
	return model.IDFromInt(n.Int64)
}
