// Package picker implements the option resolver behind catalog-backed form
// fields: paginated, de-duplicated option lists with debounced search,
// resolution of values known only by label, dependent-field filters and the
// debounced identity uniqueness check that gates submission.
//
// A Form owns one event loop goroutine. Every state change happens on that
// goroutine in response to a discrete message; network calls and timers run
// elsewhere and only post messages back.
package picker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/config"
	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/idgen"
	"github.com/alfredjeanlab/kadr/internal/model"
)

var (
	// ErrClosed is returned by every Form method after Close.
	ErrClosed = errors.New("form closed")
	// ErrUnknownField is returned for a field name the form does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownCatalog is returned for a field bound to an unknown catalog.
	ErrUnknownCatalog = errors.New("unknown catalog")
	// ErrNoGate is returned by identity methods on a form without a gate.
	ErrNoGate = errors.New("form has no identity gate")
)

// Form is one instance of an edit or create form. All exported methods are
// safe for concurrent use.
type Form struct {
	id        string
	client    client.CatalogClient
	cfg       config.PickerConfig
	logger    *slog.Logger
	publisher events.Publisher
	gateCfg   *GateConfig

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan any
	done   chan struct{}
	once   sync.Once

	// names mirrors the keys of fields for synchronous lookups.
	names sync.Map

	// Owned by the loop goroutine.
	fields          map[string]*field
	order           []string
	deps            map[string][]dependency
	gate            *Gate
	identity        *Debouncer[string]
	identityPending bool
	checking        int
	queue           []any
	waiters         []chan struct{}
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) FormOption {
	return func(f *Form) { f.logger = l }
}

// WithPublisher sets the event publisher (default events.NoopPublisher).
func WithPublisher(p events.Publisher) FormOption {
	return func(f *Form) { f.publisher = p }
}

// WithConfig sets the picker tuning (default config.DefaultPicker()).
func WithConfig(c config.PickerConfig) FormOption {
	return func(f *Form) { f.cfg = c }
}

// WithGate adds an identity uniqueness gate. A zero Delay uses the
// configured identity debounce.
func WithGate(c GateConfig) FormOption {
	return func(f *Form) { f.gateCfg = &c }
}

// WithID overrides the generated form id.
func WithID(id string) FormOption {
	return func(f *Form) { f.id = id }
}

// New creates a form and starts its event loop. The form lives until Close
// is called or ctx is done.
func New(ctx context.Context, c client.CatalogClient, opts ...FormOption) *Form {
	f := &Form{
		client:    c,
		cfg:       config.DefaultPicker(),
		logger:    slog.Default(),
		publisher: &events.NoopPublisher{},
		inbox:     make(chan any),
		done:      make(chan struct{}),
		fields:    make(map[string]*field),
		deps:      make(map[string][]dependency),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.id == "" {
		f.id = idgen.FormID()
	}
	def := config.DefaultPicker()
	if f.cfg.PageSize <= 0 {
		f.cfg.PageSize = def.PageSize
	}
	if f.cfg.FetchTimeout <= 0 {
		f.cfg.FetchTimeout = def.FetchTimeout
	}
	if f.cfg.ResolveMaxPages <= 0 {
		f.cfg.ResolveMaxPages = def.ResolveMaxPages
	}
	f.logger = f.logger.With("form", f.id)
	f.ctx, f.cancel = context.WithCancel(ctx)

	if f.gateCfg != nil {
		gc := *f.gateCfg
		if gc.Delay <= 0 {
			gc.Delay = f.cfg.IdentityDebounce
		}
		f.gate = NewGate(gc)
		f.identity = NewDebouncer(gc.Delay, func(v string) {
			_ = f.post(identitySettled{value: v})
		})
	}

	go f.run()
	return f
}

// ID returns the form id used in logs and events.
func (f *Form) ID() string { return f.id }

// Close stops the event loop and cancels every outstanding request.
func (f *Form) Close() error {
	f.once.Do(f.cancel)
	<-f.done
	return nil
}

// AddField adds a catalog field. A field whose initial selection is known only
// by label starts resolving it right away.
func (f *Form) AddField(cfg FieldConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	var err error
	doErr := f.do(func() { err = f.addField(cfg) })
	if doErr != nil {
		return doErr
	}
	return err
}

func (f *Form) addField(cfg FieldConfig) error {
	if _, ok := f.fields[cfg.Name]; ok {
		return fmt.Errorf("field %s already exists", cfg.Name)
	}
	format := cfg.Format
	if format == nil {
		format = model.FormatterFor(cfg.Catalog)
	}
	name := cfg.Name
	fd := &field{
		cfg:        cfg,
		format:     format,
		acc:        NewAccumulator(f.cfg.PageSize),
		res:        NewResolver(cfg.Initial, f.cfg.ResolveMaxPages, f.logger),
		sel:        cfg.Initial,
		depFilters: make(map[string]string),
	}
	fd.debounce = NewDebouncer(f.cfg.SearchDebounce, func(term string) {
		_ = f.post(searchTermSettled{field: name, term: term})
	})
	fd.acc.Reset(fd.query())
	f.fields[name] = fd
	f.order = append(f.order, name)
	f.names.Store(name, struct{}{})

	if fd.res.Seeking() {
		f.logger.Debug("picker: resolving pending label", "field", name, "label", fd.res.Label())
		f.observe(fd)
	}
	return nil
}

// postField posts a field message after checking the field exists.
func (f *Form) postField(name string, m any) error {
	if _, ok := f.names.Load(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return f.post(m)
}

// Open marks the field's menu as open. An empty list fetches page 1.
func (f *Form) Open(name string) error { return f.postField(name, opened{field: name}) }

// Collapse marks the field's menu as closed.
func (f *Form) Collapse(name string) error { return f.postField(name, closed{field: name}) }

// ReachEnd signals that the end of the rendered list was reached.
func (f *Form) ReachEnd(name string) error { return f.postField(name, reachedEnd{field: name}) }

// Type records raw search text. The search is applied after the quiet period.
func (f *Form) Type(name, text string) error {
	return f.postField(name, typed{field: name, text: text})
}

// Select picks an option explicitly. Any pending label resolution stops.
func (f *Form) Select(name string, opt model.Option) error {
	return f.postField(name, selected{field: name, sel: model.Resolved(opt)})
}

// Clear empties the field's selection.
func (f *Form) Clear(name string) error {
	return f.postField(name, selected{field: name, sel: model.NoSelection})
}

// Reinit re-initialises the field with a new initial value, as when the
// record being edited is reloaded.
func (f *Form) Reinit(name string, initial model.Selection) error {
	return f.postField(name, resetRequested{field: name, initial: initial})
}

// SetIdentity records the live value of the identity field.
func (f *Form) SetIdentity(value string) error {
	if f.gateCfg == nil {
		return ErrNoGate
	}
	return f.post(identityTyped{value: value})
}

// Field returns a snapshot of the named field.
func (f *Form) Field(name string) (FieldState, error) {
	var (
		st FieldState
		ok bool
	)
	if err := f.do(func() {
		var fd *field
		if fd, ok = f.fields[name]; ok {
			st = fd.state()
		}
	}); err != nil {
		return FieldState{}, err
	}
	if !ok {
		return FieldState{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return st, nil
}

// Fields returns snapshots of every field in the order they were added.
func (f *Form) Fields() ([]FieldState, error) {
	var out []FieldState
	err := f.do(func() {
		for _, name := range f.order {
			out = append(out, f.fields[name].state())
		}
	})
	return out, err
}

// Identity returns the identity gate's verdict.
func (f *Form) Identity() (Verdict, error) {
	if f.gateCfg == nil {
		return Verdict{}, ErrNoGate
	}
	var v Verdict
	err := f.do(func() { v = f.gate.Verdict() })
	return v, err
}

// Validate checks that the form may be submitted. It returns a
// *model.ValidationError listing every field that blocks submission.
func (f *Form) Validate() error {
	var ve model.ValidationError
	if err := f.do(func() {
		for _, name := range f.order {
			f.fields[name].validate(&ve)
		}
		if f.gate != nil {
			f.gate.validate(&ve)
		}
	}); err != nil {
		return err
	}
	return ve.Err()
}

// Idle blocks until no fetch, identity check or quiet period is outstanding.
func (f *Form) Idle(ctx context.Context) error {
	ch := make(chan struct{})
	if err := f.do(func() {
		if f.idle() {
			close(ch)
			return
		}
		f.waiters = append(f.waiters, ch)
	}); err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return ErrClosed
	}
}

// publish emits an event; failures are logged and otherwise ignored.
func (f *Form) publish(topic string, event any) {
	if err := f.publisher.Publish(f.ctx, topic, event); err != nil {
		f.logger.Warn("picker: failed to publish event", "topic", topic, "error", err)
	}
}
