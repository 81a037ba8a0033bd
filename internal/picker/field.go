package picker

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// FieldConfig describes one catalog-backed field of a form.
type FieldConfig struct {
	Name    string
	Catalog model.Catalog
	// Format maps raw rows to labels (default model.FormatterFor(Catalog)).
	Format model.LabelFormatter
	// Initial is the value loaded from the record being edited.
	Initial model.Selection
	// Filters are static filters sent with every request.
	Filters  map[string]string
	Required bool
}

func (c FieldConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if !c.Catalog.IsValid() {
		return fmt.Errorf("field %s: %w: %q", c.Name, ErrUnknownCatalog, c.Catalog)
	}
	return nil
}

// FieldState is a point-in-time copy of a field.
type FieldState struct {
	Name      string
	Catalog   model.Catalog
	Options   []model.Option
	Page      int
	HasMore   bool
	Fetching  bool
	Open      bool
	Search    string
	Query     Query
	Selection model.Selection
	Resolver  string
	Resets    int
	Fetches   int
	LastError error
}

// field is the loop-owned state of one catalog field.
type field struct {
	cfg    FieldConfig
	format model.LabelFormatter

	acc *Accumulator
	res *Resolver
	sel model.Selection

	open bool
	// search is the settled user search; typed is the latest raw input.
	search        string
	typed         string
	searchPending bool
	debounce      *Debouncer[string]

	// depFilters are set by the fields this one depends on.
	depFilters  map[string]string
	cancelFetch context.CancelFunc
	lastErr     error

	resets  int
	fetches int
}

// query returns the query the accumulator should be listing. While a pending
// label is being resolved and the user has not searched, the label narrows
// the listing. A user search takes over the listing but does not end the
// resolution; clearing it goes back to the label's own pages.
func (fd *field) query() Query {
	filters := make(map[string]string, len(fd.cfg.Filters)+len(fd.depFilters))
	for k, v := range fd.cfg.Filters {
		filters[k] = v
	}
	for k, v := range fd.depFilters {
		filters[k] = v
	}
	search := fd.search
	if search == "" && fd.res.Seeking() {
		search = fd.res.SearchTerm()
	}
	return Query{Search: search, Filters: filters}
}

func (fd *field) state() FieldState {
	return FieldState{
		Name:      fd.cfg.Name,
		Catalog:   fd.cfg.Catalog,
		Options:   fd.acc.Options(),
		Page:      fd.acc.Page(),
		HasMore:   fd.acc.HasMore(),
		Fetching:  fd.acc.Fetching(),
		Open:      fd.open,
		Search:    fd.search,
		Query:     fd.acc.Query(),
		Selection: fd.sel,
		Resolver:  fd.res.State(),
		Resets:    fd.resets,
		Fetches:   fd.fetches,
		LastError: fd.lastErr,
	}
}

func (fd *field) validate(ve *model.ValidationError) {
	name := fd.cfg.Name
	switch {
	case fd.sel.IsPending() && fd.res.Seeking():
		ve.Add(name, "%q is still being resolved", fd.sel.Label())
	case fd.sel.IsPending():
		ve.Add(name, "could not find %q in %s", fd.sel.Label(), fd.cfg.Catalog)
	case fd.sel.IsEmpty() && fd.cfg.Required:
		ve.Add(name, "is required")
	}
}

func (fd *field) stopTimers() {
	fd.debounce.Stop()
	if fd.cancelFetch != nil {
		fd.cancelFetch()
		fd.cancelFetch = nil
	}
}
