package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// catalogTable maps a catalog to its table and optional parent.
type catalogTable struct {
	table        string
	parentTable  string
	parentColumn string
	orderBy      string
}

var catalogTables = map[model.Catalog]catalogTable{
	model.CatalogRanks:       {table: "ranks", orderBy: "c.sort_order, c.id"},
	model.CatalogDepartments: {table: "departments", orderBy: "c.name, c.id"},
	model.CatalogUnits:       {table: "units", parentTable: "departments", parentColumn: "department_id", orderBy: "c.name, c.id"},
	model.CatalogPositions:   {table: "positions", parentTable: "units", parentColumn: "unit_id", orderBy: "c.name, c.id"},
}

// personColumns is the column list used for SELECT statements on personnel,
// joined with rank and unit names.
const personColumns = `p.id, p.pinfl, p.first_name, p.last_name, p.middle_name,
	p.rank_id, p.unit_id, p.position_id, r.name, u.name, p.created_at, p.updated_at`

const personFrom = ` FROM personnel p
	LEFT JOIN ranks r ON r.id = p.rank_id
	LEFT JOIN units u ON u.id = p.unit_id`

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

func queryListCatalog(ctx context.Context, db executor, catalog model.Catalog, filter model.CatalogFilter) ([]model.CatalogItem, int, error) {
	t, ok := catalogTables[catalog]
	if !ok {
		return nil, 0, fmt.Errorf("unknown catalog %q", catalog)
	}

	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Search != "" {
		whereClauses = append(whereClauses, "c.name ILIKE '%' || "+nextArg()+" || '%'")
		args = append(args, escapeLike(filter.Search))
	}

	if t.parentColumn != "" {
		if v := filter.Filters[t.parentColumn]; v != "" {
			parentID, err := model.ID(v).Int64()
			if err != nil {
				return nil, 0, fmt.Errorf("filter %s: %w", t.parentColumn, err)
			}
			whereClauses = append(whereClauses, "c."+t.parentColumn+" = "+nextArg())
			args = append(args, parentID)
		}
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var fromSQL string
	if t.parentTable != "" {
		fromSQL = fmt.Sprintf("SELECT COUNT(*) OVER() AS total_count, c.id, c.name, p.id, p.name FROM %s c LEFT JOIN %s p ON p.id = c.%s",
			t.table, t.parentTable, t.parentColumn)
	} else {
		fromSQL = "SELECT COUNT(*) OVER() AS total_count, c.id, c.name, NULL::bigint, NULL::text FROM " + t.table + " c"
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := fromSQL + whereSQL + " ORDER BY " + t.orderBy
	countArgs := append([]any(nil), args...)

	if filter.PageSize > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.PageSize)
	}
	offset := filter.Offset()
	if offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", catalog, err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	var total int
	for rows.Next() {
		item, n, err := scanCatalogItemWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", catalog, err)
		}
		total = n
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", catalog, err)
	}

	// A page past the end has no rows to carry the window count.
	if len(items) == 0 && offset > 0 {
		countQuery := "SELECT COUNT(*) FROM " + t.table + " c" + whereSQL
		if err := db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count %s: %w", catalog, err)
		}
	}

	return items, total, nil
}

// escapeLike escapes the ILIKE wildcards in a user search term.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func queryCreatePerson(ctx context.Context, db executor, p *model.Person) error {
	rankID, err := nullID(p.RankID)
	if err != nil {
		return fmt.Errorf("rank_id: %w", err)
	}
	unitID, err := nullID(p.UnitID)
	if err != nil {
		return fmt.Errorf("unit_id: %w", err)
	}
	positionID, err := nullID(p.PositionID)
	if err != nil {
		return fmt.Errorf("position_id: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		INSERT INTO personnel (
			pinfl, first_name, last_name, middle_name,
			rank_id, unit_id, position_id
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
		RETURNING id, created_at, updated_at`,
		p.PINFL,
		p.FirstName,
		p.LastName,
		nullString(p.MiddleName),
		rankID,
		unitID,
		positionID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return store.ErrDuplicatePINFL
		}
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

func queryGetPerson(ctx context.Context, db executor, id int64) (*model.Person, error) {
	row := db.QueryRowContext(ctx, `SELECT `+personColumns+personFrom+` WHERE p.id = $1`, id)
	return scanPerson(row)
}

func queryFindPersonByPINFL(ctx context.Context, db executor, pinfl string) (*model.Person, error) {
	row := db.QueryRowContext(ctx, `SELECT `+personColumns+personFrom+` WHERE p.pinfl = $1`, pinfl)
	return scanPerson(row)
}

func queryListPeople(ctx context.Context, db executor, limit, offset int) ([]*model.Person, int, error) {
	var args []any
	q := `SELECT COUNT(*) OVER() AS total_count, ` + personColumns + personFrom + ` ORDER BY p.last_name, p.first_name, p.id`
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list personnel: %w", err)
	}
	defer rows.Close()

	var people []*model.Person
	var total int
	for rows.Next() {
		p, t, err := scanPersonWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan personnel: %w", err)
		}
		total = t
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan personnel: %w", err)
	}

	// Same as catalogs: past the end there is no row to carry the count.
	if len(people) == 0 && offset > 0 {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM personnel").Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count personnel: %w", err)
		}
	}
	return people, total, nil
}
