package picker

import (
	"context"
	"testing"

	"github.com/alfredjeanlab/kadr/internal/model"
)

func TestNormalizeLabel(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"Infantry - 3rd Battalion", "infantry"},
		{"  INFANTRY  ", "infantry"},
		{"Signals   Company - 2nd Brigade - North", "signals company"},
		{"Straße", "strasse"},
		{"Пехота - 1-й батальон", "пехота"},
		{"no-separator-here", "no-separator-here"},
		{"", ""},
	} {
		if got := normalizeLabel(tc.in); got != tc.want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPendingKeyAndSearchTerm(t *testing.T) {
	if got := pendingKey(" - HQ"); got != "- hq" {
		t.Errorf("pendingKey(\" - HQ\") = %q, want %q", got, "- hq")
	}
	if got := searchTerm("Infantry - 3rd Battalion"); got != "Infantry" {
		t.Errorf("searchTerm = %q, want %q", got, "Infantry")
	}
	if got := searchTerm(" - HQ"); got != "- HQ" {
		t.Errorf("searchTerm(\" - HQ\") = %q, want %q", got, "- HQ")
	}
}

func TestMatchLabel_ExactBeatsSubstring(t *testing.T) {
	options := []model.Option{
		{ID: "1", Label: "Mechanized Infantry - 1st Brigade"},
		{ID: "7", Label: "Infantry - 3rd Battalion HQ"},
	}
	// "mechanized infantry" contains "infantry" and comes first, but the
	// exact match on id 7 wins.
	got, ok := matchLabel(pendingKey("Infantry - 3rd Battalion"), options)
	if !ok || got.ID != "7" {
		t.Fatalf("matchLabel = %+v, %v; want id 7", got, ok)
	}
}

func TestMatchLabel_SubstringFallback(t *testing.T) {
	options := []model.Option{
		{ID: "2", Label: "Artillery - 5th Regiment"},
		{ID: "9", Label: "Signals Company - 2nd Brigade"},
	}
	got, ok := matchLabel(pendingKey("Signals"), options)
	if !ok || got.ID != "9" {
		t.Fatalf("matchLabel = %+v, %v; want id 9", got, ok)
	}
}

func TestMatchLabel_SharedPrefixPicksFirst(t *testing.T) {
	options := []model.Option{
		{ID: "3", Label: "Infantry Reserve - North"},
		{ID: "4", Label: "Infantry Training - South"},
	}
	got, ok := matchLabel(pendingKey("Infantry"), options)
	if !ok || got.ID != "3" {
		t.Fatalf("matchLabel = %+v, %v; want the first candidate (id 3)", got, ok)
	}
}

func TestMatchLabel_EmptyKey(t *testing.T) {
	if _, ok := matchLabel("", []model.Option{{ID: "1", Label: "Anything"}}); ok {
		t.Error("empty key must never match")
	}
}

func TestResolver_InitialState(t *testing.T) {
	if r := NewResolver(model.PendingByLabel("Major"), 0, nil); r.State() != ResolverSeeking {
		t.Errorf("pending selection: state = %q, want seeking", r.State())
	}
	if r := NewResolver(model.Resolved(model.Option{ID: "1", Label: "Major"}), 0, nil); r.State() != ResolverIdle {
		t.Errorf("resolved selection: state = %q, want idle", r.State())
	}
	if r := NewResolver(model.PendingByLabel(""), 0, nil); r.State() != ResolverIdle {
		t.Errorf("empty label: state = %q, want idle", r.State())
	}
}

func TestResolver_ExactMatch(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(model.PendingByLabel("Infantry - 3rd Battalion"), 0, nil)

	if out := r.Observe(ctx, Snapshot{HasMore: true}); out.Kind != OutcomeFetchMore {
		t.Fatalf("empty snapshot: outcome = %v, want fetch_more", out.Kind)
	}
	out := r.Observe(ctx, Snapshot{
		Options: []model.Option{{ID: "7", Label: "Infantry - 3rd Battalion HQ"}},
		Page:    1,
		HasMore: true,
	})
	if out.Kind != OutcomeResolved || out.Option.ID != "7" {
		t.Fatalf("outcome = %+v, want resolved to 7", out)
	}
	if r.State() != ResolverResolved {
		t.Errorf("state = %q, want resolved", r.State())
	}
	// Terminal: later pages are ignored.
	if out := r.Observe(ctx, Snapshot{Page: 2}); out.Kind != OutcomeNone {
		t.Errorf("after resolution: outcome = %v, want none", out.Kind)
	}
}

func TestResolver_SubstringOnlyMatch(t *testing.T) {
	r := NewResolver(model.PendingByLabel("Signals"), 0, nil)
	out := r.Observe(context.Background(), Snapshot{
		Options: []model.Option{
			{ID: "1", Label: "Artillery"},
			{ID: "9", Label: "Signals Company - 2nd Brigade"},
		},
		Page:    1,
		HasMore: false,
	})
	if out.Kind != OutcomeResolved || out.Option.ID != "9" {
		t.Fatalf("outcome = %+v, want resolved to 9", out)
	}
}

func TestResolver_ExhaustsAfterLastPage(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(model.PendingByLabel("Nonexistent Unit"), 0, nil)

	out := r.Observe(ctx, Snapshot{Options: opts(1, 2), Page: 1, HasMore: true})
	if out.Kind != OutcomeFetchMore {
		t.Fatalf("page 1: outcome = %v, want fetch_more", out.Kind)
	}
	out = r.Observe(ctx, Snapshot{Options: opts(1, 2, 3, 4), Page: 2, HasMore: false})
	if out.Kind != OutcomeExhausted {
		t.Fatalf("page 2: outcome = %v, want exhausted", out.Kind)
	}
	if r.State() != ResolverIdle {
		t.Errorf("state = %q, want idle", r.State())
	}
	if r.Pages() != 2 {
		t.Errorf("Pages() = %d, want 2", r.Pages())
	}
}

func TestResolver_WaitsWhileFetching(t *testing.T) {
	r := NewResolver(model.PendingByLabel("Major"), 0, nil)
	out := r.Observe(context.Background(), Snapshot{Options: opts(1), Page: 1, HasMore: true, Fetching: true})
	if out.Kind != OutcomeNone {
		t.Errorf("outcome = %v, want none while fetching", out.Kind)
	}
	if !r.Seeking() {
		t.Error("resolver should keep seeking")
	}
}

func TestResolver_MaxPagesBound(t *testing.T) {
	r := NewResolver(model.PendingByLabel("Major"), 3, nil)
	out := r.Observe(context.Background(), Snapshot{Options: opts(1, 2, 3), Page: 3, HasMore: true})
	if out.Kind != OutcomeExhausted {
		t.Fatalf("outcome = %v, want exhausted at the page bound", out.Kind)
	}
}

func TestResolver_Abandon(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(model.PendingByLabel("Major"), 0, nil)
	r.Abandon(ctx)
	if r.State() != ResolverIdle {
		t.Errorf("state = %q, want idle", r.State())
	}
	// Abandoning an idle resolver is a no-op.
	r.Abandon(ctx)
	if out := r.Observe(ctx, Snapshot{Options: []model.Option{{ID: "1", Label: "Major"}}}); out.Kind != OutcomeNone {
		t.Errorf("abandoned resolver still resolves: %v", out.Kind)
	}
}

func TestResolver_NarrowedListingDoesNotExhaust(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(model.PendingByLabel("Infantry"), 0, nil)

	if out := r.Observe(ctx, Snapshot{Page: 1, Narrowed: true}); out.Kind != OutcomeNone {
		t.Fatalf("empty narrowed listing = %v, want none", out.Kind)
	}
	if out := r.Observe(ctx, Snapshot{Options: opts(1), Page: 1, HasMore: true, Narrowed: true}); out.Kind != OutcomeNone {
		t.Fatalf("narrowed listing with more pages = %v, want none", out.Kind)
	}
	if !r.Seeking() {
		t.Fatalf("state = %q, want seeking", r.State())
	}

	out := r.Observe(ctx, Snapshot{Options: []model.Option{{ID: "7", Label: "Infantry"}}, Page: 1, Narrowed: true})
	if out.Kind != OutcomeResolved || out.Option.ID != "7" {
		t.Fatalf("outcome = %+v, want resolved to 7", out)
	}
}
