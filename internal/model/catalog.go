package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Catalog names a remote option catalog.
type Catalog string

const (
	CatalogRanks       Catalog = "ranks"
	CatalogDepartments Catalog = "departments"
	CatalogUnits       Catalog = "units"
	CatalogPositions   Catalog = "positions"
)

// String returns the string representation of the catalog.
func (c Catalog) String() string {
	return string(c)
}

// IsValid checks whether the catalog is a known value.
func (c Catalog) IsValid() bool {
	switch c {
	case CatalogRanks, CatalogDepartments, CatalogUnits, CatalogPositions:
		return true
	}
	return false
}

// ParentFilter returns the filter key that narrows the catalog by its parent,
// or "" when the catalog has no parent.
func (c Catalog) ParentFilter() string {
	switch c {
	case CatalogUnits:
		return "department_id"
	case CatalogPositions:
		return "unit_id"
	}
	return ""
}

// Catalogs lists every known catalog in dependency order.
func Catalogs() []Catalog {
	return []Catalog{CatalogRanks, CatalogDepartments, CatalogUnits, CatalogPositions}
}

// ID identifies an entry within one catalog. On the wire it may be a JSON
// number or a JSON string; both decode to the same ID.
type ID string

// String returns the string representation of the id.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool {
	return id == ""
}

// Int64 parses the id as a decimal integer.
func (id ID) Int64() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q is not numeric", string(id))
	}
	return n, nil
}

// IDFromInt formats an integer id.
func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	// Whole-valued floats such as 10.0 decode to the integer id.
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*id = IDFromInt(int64(f))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := id.Int64(); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// CatalogItem is a raw catalog row as served by the catalog API.
type CatalogItem struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	ParentID   ID     `json:"parent_id,omitempty"`
	ParentName string `json:"parent_name,omitempty"`
}

// Option is one selectable entry: an identifier and its display label.
// Options are created per fetch response and never mutated.
type Option struct {
	ID    ID     `json:"id"`
	Label string `json:"label"`
}

// OptionPage is one page of options returned by a catalog fetch.
type OptionPage struct {
	Items []Option `json:"items"`
	Page  int      `json:"page"`
	Total int      `json:"total"`
}

// HasMore reports whether pages beyond this one exist for the given page size.
func (p OptionPage) HasMore(pageSize int) bool {
	if pageSize <= 0 {
		return false
	}
	return p.Page*pageSize < p.Total
}

// LabelSeparator joins a name with its qualifying parent name.
const LabelSeparator = " - "

// LabelFormatter maps a raw catalog row to its display label.
type LabelFormatter func(CatalogItem) string

// NameLabel uses the row name as the label.
func NameLabel(item CatalogItem) string {
	return strings.TrimSpace(item.Name)
}

// QualifiedLabel renders "name - parent" when the row has a parent name.
func QualifiedLabel(item CatalogItem) string {
	name := strings.TrimSpace(item.Name)
	parent := strings.TrimSpace(item.ParentName)
	if parent == "" {
		return name
	}
	return name + LabelSeparator + parent
}

// FormatterFor returns the label formatter used for the given catalog.
func FormatterFor(c Catalog) LabelFormatter {
	switch c {
	case CatalogUnits, CatalogPositions:
		return QualifiedLabel
	default:
		return NameLabel
	}
}

// ToOptions converts raw rows to options with the given formatter.
func ToOptions(items []CatalogItem, format LabelFormatter) []Option {
	if format == nil {
		format = NameLabel
	}
	out := make([]Option, 0, len(items))
	for _, item := range items {
		out = append(out, Option{ID: item.ID, Label: format(item)})
	}
	return out
}

// CatalogFilter holds criteria for listing one catalog page.
type CatalogFilter struct {
	Search   string            `json:"search,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"` // parent filters, e.g. department_id=3
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Offset returns the row offset of the filter's page.
func (f CatalogFilter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
