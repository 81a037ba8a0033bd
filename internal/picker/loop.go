package picker

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/model"
)

// Messages consumed by the form's event loop. Every state change of a field
// or of the identity gate happens in response to exactly one of these.
type (
	opened     struct{ field string }
	closed     struct{ field string }
	reachedEnd struct{ field string }
	typed      struct{ field, text string }

	searchTermSettled struct{ field, term string }

	pageFetched struct {
		field string
		gen   uint64
		page  model.OptionPage
	}
	fetchFailed struct {
		field string
		gen   uint64
		page  int
		err   error
	}

	filterChanged  struct{ field, key, value string }
	resetRequested struct {
		field   string
		initial model.Selection
	}
	selected struct {
		field string
		sel   model.Selection
	}

	identityTyped   struct{ value string }
	identitySettled struct{ value string }
	identityChecked struct {
		value string
		resp  *client.CheckIdentityResponse
		err   error
	}

	// call runs fn on the loop goroutine.
	call struct {
		fn   func()
		done chan struct{}
	}
)

// fieldName returns the target field of a field message, or "".
func fieldName(m any) string {
	switch m := m.(type) {
	case opened:
		return m.field
	case closed:
		return m.field
	case reachedEnd:
		return m.field
	case typed:
		return m.field
	case searchTermSettled:
		return m.field
	case pageFetched:
		return m.field
	case fetchFailed:
		return m.field
	case filterChanged:
		return m.field
	case resetRequested:
		return m.field
	case selected:
		return m.field
	}
	return ""
}

func (f *Form) run() {
	defer close(f.done)
	for {
		select {
		case <-f.ctx.Done():
			f.shutdown()
			return
		case m := <-f.inbox:
			f.dispatch(m)
			// Messages raised while handling m are processed before the next
			// external message.
			for len(f.queue) > 0 {
				next := f.queue[0]
				f.queue = f.queue[1:]
				f.dispatch(next)
			}
			f.notifyIdle()
		}
	}
}

// post delivers m to the loop from any goroutine other than the loop itself.
func (f *Form) post(m any) error {
	select {
	case f.inbox <- m:
		return nil
	case <-f.done:
		return ErrClosed
	}
}

// enqueue schedules m from inside the loop.
func (f *Form) enqueue(m any) {
	f.queue = append(f.queue, m)
}

// do runs fn on the loop and waits for it to finish.
func (f *Form) do(fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	if err := f.post(c); err != nil {
		return err
	}
	select {
	case <-c.done:
		return nil
	case <-f.done:
		return ErrClosed
	}
}

func (f *Form) dispatch(m any) {
	switch m := m.(type) {
	case call:
		m.fn()
		close(m.done)
		return
	case identityTyped:
		f.onIdentityTyped(m.value)
		return
	case identitySettled:
		f.onIdentitySettled(m.value)
		return
	case identityChecked:
		f.onIdentityChecked(m)
		return
	}

	name := fieldName(m)
	fd, ok := f.fields[name]
	if !ok {
		f.logger.Warn("picker: message for unknown field", "field", name)
		return
	}

	switch m := m.(type) {
	case opened:
		f.onOpened(fd)
	case closed:
		fd.open = false
	case reachedEnd:
		f.onReachedEnd(fd)
	case typed:
		fd.typed = m.text
		fd.searchPending = true
		fd.debounce.Push(m.text)
	case searchTermSettled:
		f.onSearchTermSettled(fd, m.term)
	case pageFetched:
		f.onPageFetched(fd, m)
	case fetchFailed:
		f.onFetchFailed(fd, m)
	case filterChanged:
		f.onFilterChanged(fd, m.key, m.value)
	case resetRequested:
		f.onResetRequested(fd, m.initial)
	case selected:
		f.onSelected(fd, m.sel)
	}
}

func (f *Form) onOpened(fd *field) {
	fd.open = true
	if !fd.acc.Query().Equal(fd.query()) {
		f.reset(fd)
		return
	}
	if fd.acc.Len() == 0 {
		f.fetchNext(fd)
	}
}

func (f *Form) onReachedEnd(fd *field) {
	if fd.open {
		f.fetchNext(fd)
	}
	if fd.res.Seeking() {
		f.observe(fd)
	}
}

func (f *Form) onSearchTermSettled(fd *field, term string) {
	if term != fd.typed {
		f.logger.Debug("picker: dropping superseded search term", "field", fd.cfg.Name)
		return
	}
	fd.searchPending = false
	term = strings.TrimSpace(term)
	if term == fd.search {
		return
	}
	fd.search = term
	f.reset(fd)
}

// reset starts the field's listing over with its current query. An open
// field refetches page 1 immediately.
func (f *Form) reset(fd *field) {
	if fd.cancelFetch != nil {
		fd.cancelFetch()
		fd.cancelFetch = nil
	}
	fd.acc.Reset(fd.query())
	fd.resets++
	fd.lastErr = nil
	if fd.open {
		f.fetchNext(fd)
		return
	}
	if fd.res.Seeking() {
		f.observe(fd)
	}
}

func (f *Form) fetchNext(fd *field) {
	req, ok := fd.acc.FetchNext()
	if !ok {
		return
	}
	fd.fetches++
	ctx, cancel := context.WithTimeout(f.ctx, f.cfg.FetchTimeout)
	fd.cancelFetch = cancel
	f.logger.Debug("picker: fetching page",
		"field", fd.cfg.Name, "catalog", fd.cfg.Catalog, "page", req.Page, "search", req.Query.Search)
	go f.fetch(ctx, cancel, fd.cfg.Name, fd.cfg.Catalog, fd.format, req)
}

// fetch runs on its own goroutine and reports back through the inbox.
func (f *Form) fetch(ctx context.Context, cancel context.CancelFunc, name string, catalog model.Catalog, format model.LabelFormatter, req FetchRequest) {
	defer cancel()
	resp, err := f.client.ListOptions(ctx, &client.ListOptionsRequest{
		Catalog:  catalog,
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Query.Search,
		Filters:  req.Query.Filters,
	})
	if err != nil {
		_ = f.post(fetchFailed{field: name, gen: req.Generation, page: req.Page, err: err})
		return
	}
	_ = f.post(pageFetched{
		field: name,
		gen:   req.Generation,
		page: model.OptionPage{
			Items: model.ToOptions(resp.Results, format),
			Page:  req.Page,
			Total: resp.Total,
		},
	})
}

func (f *Form) onPageFetched(fd *field, m pageFetched) {
	if err := fd.acc.Complete(m.gen, m.page); err != nil {
		f.logger.Debug("picker: discarding page", "field", fd.cfg.Name, "page", m.page.Page, "reason", err)
		return
	}
	fd.cancelFetch = nil
	fd.lastErr = nil
	f.observe(fd)
}

func (f *Form) onFetchFailed(fd *field, m fetchFailed) {
	if !fd.acc.Fail(m.gen) {
		f.logger.Debug("picker: discarding failure", "field", fd.cfg.Name, "page", m.page, "reason", ErrStaleResponse)
		return
	}
	fd.cancelFetch = nil
	fd.lastErr = m.err
	f.logger.Warn("picker: fetch failed",
		"field", fd.cfg.Name, "catalog", fd.cfg.Catalog, "page", m.page, "error", m.err)
	f.publish(events.TopicPickerFetchFailed, events.PickerFetchFailed{
		FormID:  f.id,
		Field:   fd.cfg.Name,
		Catalog: fd.cfg.Catalog,
		Page:    m.page,
		Error:   m.err.Error(),
	})
}

// observe lets the resolver look at the field's options.
func (f *Form) observe(fd *field) {
	out := fd.res.Observe(f.ctx, Snapshot{
		Options:  fd.acc.Options(),
		Page:     fd.acc.Page(),
		HasMore:  fd.acc.HasMore(),
		Fetching: fd.acc.Fetching(),
		Narrowed: fd.acc.Query().Search != fd.res.SearchTerm(),
	})
	switch out.Kind {
	case OutcomeResolved:
		prev := fd.sel
		fd.sel = model.Resolved(out.Option)
		f.logger.Info("picker: resolved pending label",
			"field", fd.cfg.Name, "label", fd.res.Label(), "id", out.Option.ID, "pages", fd.res.Pages())
		f.publish(events.TopicPickerResolved, events.PickerResolved{
			FormID:  f.id,
			Field:   fd.cfg.Name,
			Catalog: fd.cfg.Catalog,
			Label:   fd.res.Label(),
			Option:  out.Option,
			Pages:   fd.res.Pages(),
		})
		f.selectionChanged(fd, prev)
	case OutcomeExhausted:
		f.logger.Info("picker: pending label not found",
			"field", fd.cfg.Name, "label", fd.res.Label(), "pages", fd.res.Pages())
		f.publish(events.TopicPickerExhausted, events.PickerExhausted{
			FormID:  f.id,
			Field:   fd.cfg.Name,
			Catalog: fd.cfg.Catalog,
			Label:   fd.res.Label(),
			Pages:   fd.res.Pages(),
		})
	case OutcomeFetchMore:
		f.fetchNext(fd)
	}
}

func (f *Form) onSelected(fd *field, sel model.Selection) {
	prev := fd.sel
	fd.res.Abandon(f.ctx)
	fd.sel = sel
	f.selectionChanged(fd, prev)
}

func (f *Form) onResetRequested(fd *field, initial model.Selection) {
	prev := fd.sel
	fd.debounce.Cancel()
	fd.searchPending = false
	fd.typed = ""
	fd.search = ""
	fd.sel = initial
	fd.res = NewResolver(initial, f.cfg.ResolveMaxPages, f.logger)
	f.reset(fd)
	f.selectionChanged(fd, prev)
}

// --- identity gate ---

func (f *Form) onIdentityTyped(v string) {
	if f.gate == nil {
		f.logger.Warn("picker: identity input on a form without a gate")
		return
	}
	if f.gate.Input(v) {
		f.identityPending = true
		f.identity.Push(v)
		return
	}
	f.identityPending = false
	f.identity.Cancel()
}

func (f *Form) onIdentitySettled(v string) {
	if f.gate == nil {
		return
	}
	if v == f.gate.Verdict().Value {
		f.identityPending = false
	}
	if !f.gate.Settled(v) {
		return
	}
	f.checking++
	ctx, cancel := context.WithTimeout(f.ctx, f.cfg.FetchTimeout)
	go func() {
		defer cancel()
		resp, err := f.client.CheckIdentity(ctx, &client.CheckIdentityRequest{Value: v})
		_ = f.post(identityChecked{value: v, resp: resp, err: err})
	}()
}

func (f *Form) onIdentityChecked(m identityChecked) {
	f.checking--
	if !f.gate.Result(m.value, m.resp, m.err) {
		f.logger.Debug("picker: discarding identity check", "reason", ErrStaleResponse)
		return
	}
	ev := events.IdentityChecked{FormID: f.id}
	if m.err != nil {
		f.logger.Warn("picker: identity check failed", "error", m.err)
		ev.Error = m.err.Error()
	} else {
		ev.Exists = m.resp.Exists
		ev.Matched = m.resp.MatchedRecordID
		f.logger.Debug("picker: identity checked", "exists", m.resp.Exists)
	}
	f.publish(events.TopicIdentityChecked, ev)
}

// idle reports whether nothing is in flight or waiting for a quiet period.
func (f *Form) idle() bool {
	if f.identityPending || f.checking > 0 {
		return false
	}
	for _, fd := range f.fields {
		if fd.searchPending || fd.acc.Fetching() {
			return false
		}
	}
	return true
}

func (f *Form) notifyIdle() {
	if len(f.waiters) == 0 || !f.idle() {
		return
	}
	for _, ch := range f.waiters {
		close(ch)
	}
	f.waiters = nil
}

func (f *Form) shutdown() {
	for _, fd := range f.fields {
		fd.stopTimers()
	}
	if f.identity != nil {
		f.identity.Stop()
	}
}
