package picker

import (
	"errors"
	"maps"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// ErrStaleResponse is returned when a page arrives for a generation that has
// since been reset.
var ErrStaleResponse = errors.New("stale response")

// Query is the search term and filters a catalog is listed with.
type Query struct {
	Search  string
	Filters map[string]string
}

// Equal reports whether two queries select the same rows. Empty filter values
// are treated as absent.
func (q Query) Equal(o Query) bool {
	if q.Search != o.Search {
		return false
	}
	return maps.Equal(nonEmpty(q.Filters), nonEmpty(o.Filters))
}

func (q Query) clone() Query {
	return Query{Search: q.Search, Filters: nonEmpty(q.Filters)}
}

func nonEmpty(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// FetchRequest describes the page an Accumulator wants next.
type FetchRequest struct {
	Generation uint64
	Page       int
	PageSize   int
	Query      Query
}

// Accumulator owns the growing, de-duplicated option list of one field.
// It is not safe for concurrent use; a Form drives it from its event loop.
type Accumulator struct {
	pageSize int
	query    Query

	options []model.Option
	index   map[model.ID]int
	page    int
	hasMore bool
	// fetching is set for the lifetime of one outstanding request.
	fetching bool
	gen      uint64
}

// NewAccumulator returns an empty accumulator with an empty query.
func NewAccumulator(pageSize int) *Accumulator {
	if pageSize <= 0 {
		pageSize = 20
	}
	a := &Accumulator{pageSize: pageSize}
	a.Reset(Query{})
	return a
}

// Reset clears the options and starts over with q. Any outstanding request
// belongs to the previous generation and will be rejected on arrival.
func (a *Accumulator) Reset(q Query) {
	a.gen++
	a.query = q.clone()
	a.options = nil
	a.index = make(map[model.ID]int)
	a.page = 0
	a.hasMore = true
	a.fetching = false
}

// FetchNext reserves the next page. It returns false while a request is
// outstanding or when every page has been fetched.
func (a *Accumulator) FetchNext() (FetchRequest, bool) {
	if a.fetching || !a.hasMore {
		return FetchRequest{}, false
	}
	a.fetching = true
	return FetchRequest{
		Generation: a.gen,
		Page:       a.page + 1,
		PageSize:   a.pageSize,
		Query:      a.query.clone(),
	}, true
}

// Complete merges a fetched page. Options are keyed by id: a duplicate id
// replaces the earlier entry in place.
func (a *Accumulator) Complete(gen uint64, page model.OptionPage) error {
	if gen != a.gen {
		return ErrStaleResponse
	}
	for _, opt := range page.Items {
		if i, ok := a.index[opt.ID]; ok {
			a.options[i] = opt
			continue
		}
		a.index[opt.ID] = len(a.options)
		a.options = append(a.options, opt)
	}
	if page.Page > 0 {
		a.page = page.Page
	} else {
		a.page++
	}
	a.hasMore = a.page*a.pageSize < page.Total
	a.fetching = false
	return nil
}

// Fail records a failed request. Options and hasMore are left unchanged so the
// next trigger retries the same page. It returns false for a stale generation.
func (a *Accumulator) Fail(gen uint64) bool {
	if gen != a.gen {
		return false
	}
	a.fetching = false
	return true
}

// Options returns a copy of the accumulated options in insertion order.
func (a *Accumulator) Options() []model.Option {
	out := make([]model.Option, len(a.options))
	copy(out, a.options)
	return out
}

func (a *Accumulator) Len() int           { return len(a.options) }
func (a *Accumulator) Page() int          { return a.page }
func (a *Accumulator) PageSize() int      { return a.pageSize }
func (a *Accumulator) HasMore() bool      { return a.hasMore }
func (a *Accumulator) Fetching() bool     { return a.fetching }
func (a *Accumulator) Generation() uint64 { return a.gen }
func (a *Accumulator) Query() Query       { return a.query.clone() }
