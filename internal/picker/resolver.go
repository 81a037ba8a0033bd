package picker

import (
	"context"
	"log/slog"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/looplab/fsm"
)

// Resolver states.
const (
	ResolverIdle     = "idle"
	ResolverSeeking  = "seeking"
	ResolverResolved = "resolved"
)

// Resolver events.
const (
	eventResolve = "resolve"
	eventExhaust = "exhaust"
	eventAbandon = "abandon"
)

// DefaultMaxPages bounds how many pages a resolver asks for.
const DefaultMaxPages = 10

// OutcomeKind says what a Resolver wants done after observing a page.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeResolved
	OutcomeFetchMore
	OutcomeExhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResolved:
		return "resolved"
	case OutcomeFetchMore:
		return "fetch_more"
	case OutcomeExhausted:
		return "exhausted"
	}
	return "none"
}

// Outcome is the result of Resolver.Observe.
type Outcome struct {
	Kind   OutcomeKind
	Option model.Option // set for OutcomeResolved
}

// Snapshot is the accumulator state a Resolver observes.
type Snapshot struct {
	Options  []model.Option
	Page     int
	HasMore  bool
	Fetching bool
	// Narrowed is set when the listing was searched by something other than
	// the resolver's own term, such as a user search. A narrowed listing can
	// still contain the label, but running out of it proves nothing.
	Narrowed bool
}

// Resolver promotes a selection known only by its label to a concrete catalog
// option once a matching option shows up in the accumulated list.
type Resolver struct {
	machine  *fsm.FSM
	label    string
	key      string
	search   string
	maxPages int
	pages    int
	logger   *slog.Logger
}

// NewResolver returns a resolver that starts seeking when initial is a
// pending selection, and idles otherwise.
func NewResolver(initial model.Selection, maxPages int, logger *slog.Logger) *Resolver {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{maxPages: maxPages, logger: logger}

	state := ResolverIdle
	if initial.IsPending() {
		state = ResolverSeeking
		r.label = initial.Label()
		r.key = pendingKey(r.label)
		r.search = searchTerm(r.label)
	}

	r.machine = fsm.NewFSM(
		state,
		fsm.Events{
			{Name: eventResolve, Src: []string{ResolverSeeking}, Dst: ResolverResolved},
			{Name: eventExhaust, Src: []string{ResolverSeeking}, Dst: ResolverIdle},
			{Name: eventAbandon, Src: []string{ResolverSeeking}, Dst: ResolverIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				r.logger.Debug("picker: resolver transition",
					"label", r.label, "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return r
}

// State returns the current resolver state.
func (r *Resolver) State() string { return r.machine.Current() }

// Seeking reports whether the resolver is still looking for its label.
func (r *Resolver) Seeking() bool { return r.machine.Is(ResolverSeeking) }

// Label returns the pending label, or "" when the resolver never sought one.
func (r *Resolver) Label() string { return r.label }

// SearchTerm returns the catalog search used while seeking.
func (r *Resolver) SearchTerm() string { return r.search }

// Pages returns how many pages the resolver has observed.
func (r *Resolver) Pages() int { return r.pages }

// Observe inspects the current options after a page was merged (or, with an
// empty snapshot, when resolution starts).
func (r *Resolver) Observe(ctx context.Context, s Snapshot) Outcome {
	if !r.Seeking() {
		return Outcome{}
	}
	r.pages = s.Page
	if opt, ok := matchLabel(r.key, s.Options); ok {
		r.fire(ctx, eventResolve)
		return Outcome{Kind: OutcomeResolved, Option: opt}
	}
	if s.Narrowed {
		return Outcome{}
	}
	if !s.HasMore || s.Page >= r.maxPages {
		r.fire(ctx, eventExhaust)
		return Outcome{Kind: OutcomeExhausted}
	}
	if s.Fetching {
		return Outcome{}
	}
	return Outcome{Kind: OutcomeFetchMore}
}

// Abandon stops seeking, used when the user picks a value explicitly.
func (r *Resolver) Abandon(ctx context.Context) {
	if r.Seeking() {
		r.fire(ctx, eventAbandon)
	}
}

func (r *Resolver) fire(ctx context.Context, event string) {
	if err := r.machine.Event(ctx, event); err != nil {
		r.logger.Warn("picker: resolver event rejected", "event", event, "state", r.State(), "error", err)
	}
}
