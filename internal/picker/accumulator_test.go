package picker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alfredjeanlab/kadr/internal/model"
)

func opts(ids ...int) []model.Option {
	out := make([]model.Option, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Option{ID: model.IDFromInt(int64(id)), Label: fmt.Sprintf("item %d", id)})
	}
	return out
}

func TestAccumulator_FetchNextWhileFetching(t *testing.T) {
	a := NewAccumulator(10)

	req, ok := a.FetchNext()
	if !ok {
		t.Fatal("first FetchNext should reserve a page")
	}
	if req.Page != 1 || req.PageSize != 10 {
		t.Errorf("req = %+v, want page 1 size 10", req)
	}
	for i := 0; i < 5; i++ {
		if _, ok := a.FetchNext(); ok {
			t.Fatalf("FetchNext #%d succeeded while a request was outstanding", i+2)
		}
	}
	if !a.Fetching() {
		t.Error("Fetching() = false, want true")
	}

	if err := a.Complete(req.Generation, model.OptionPage{Items: opts(1, 2), Page: 1, Total: 25}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	req2, ok := a.FetchNext()
	if !ok || req2.Page != 2 {
		t.Fatalf("FetchNext after completion = %+v, %v; want page 2", req2, ok)
	}
}

func TestAccumulator_MergeDeduplicates(t *testing.T) {
	a := NewAccumulator(3)

	req, _ := a.FetchNext()
	_ = a.Complete(req.Generation, model.OptionPage{Items: opts(1, 2, 3), Page: 1, Total: 6})

	// Page 2 overlaps page 1 (rows shifted between requests).
	req, _ = a.FetchNext()
	page2 := opts(3, 4, 5)
	page2[0].Label = "item 3 renamed"
	_ = a.Complete(req.Generation, model.OptionPage{Items: page2, Page: 2, Total: 6})

	got := a.Options()
	seen := map[model.ID]bool{}
	for _, o := range got {
		if seen[o.ID] {
			t.Fatalf("duplicate id %s in %v", o.ID, got)
		}
		seen[o.ID] = true
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5 (%v)", len(got), got)
	}
	// Last write wins, first position kept.
	if got[2].ID != "3" || got[2].Label != "item 3 renamed" {
		t.Errorf("got[2] = %+v, want id 3 with the later label", got[2])
	}
	if got[4].ID != "5" {
		t.Errorf("got[4] = %+v, want id 5", got[4])
	}
}

func TestAccumulator_HasMoreBoundary(t *testing.T) {
	for _, tc := range []struct {
		name     string
		pageSize int
		page     int
		total    int
		want     bool
	}{
		{"EmptyCatalog", 20, 1, 0, false},
		{"SinglePartialPage", 20, 1, 7, false},
		{"ExactlyOnePage", 20, 1, 20, false},
		{"OneMoreRow", 20, 1, 21, true},
		{"LastPageExact", 10, 3, 30, false},
		{"MiddlePage", 10, 2, 30, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAccumulator(tc.pageSize)
			a.page = tc.page - 1
			req, ok := a.FetchNext()
			if !ok {
				t.Fatal("FetchNext refused")
			}
			if err := a.Complete(req.Generation, model.OptionPage{Page: tc.page, Total: tc.total}); err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if a.HasMore() != tc.want {
				t.Errorf("HasMore() = %v, want %v", a.HasMore(), tc.want)
			}
			if _, ok := a.FetchNext(); ok != tc.want {
				t.Errorf("FetchNext ok = %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestAccumulator_StaleResponseAfterReset(t *testing.T) {
	a := NewAccumulator(10)
	old, _ := a.FetchNext()

	a.Reset(Query{Search: "inf"})
	if a.Fetching() {
		t.Error("Reset should clear fetching")
	}
	if a.Page() != 0 || !a.HasMore() || a.Len() != 0 {
		t.Errorf("after Reset: page=%d hasMore=%v len=%d", a.Page(), a.HasMore(), a.Len())
	}

	err := a.Complete(old.Generation, model.OptionPage{Items: opts(1, 2), Page: 1, Total: 2})
	if !errors.Is(err, ErrStaleResponse) {
		t.Fatalf("Complete(stale) = %v, want ErrStaleResponse", err)
	}
	if a.Len() != 0 {
		t.Errorf("stale page was merged: %v", a.Options())
	}
	if a.Fail(old.Generation) {
		t.Error("Fail(stale) = true, want false")
	}

	req, ok := a.FetchNext()
	if !ok || req.Page != 1 || req.Query.Search != "inf" {
		t.Errorf("FetchNext after reset = %+v, %v", req, ok)
	}
}

func TestAccumulator_FailKeepsState(t *testing.T) {
	a := NewAccumulator(2)
	req, _ := a.FetchNext()
	_ = a.Complete(req.Generation, model.OptionPage{Items: opts(1, 2), Page: 1, Total: 5})

	req, _ = a.FetchNext()
	if !a.Fail(req.Generation) {
		t.Fatal("Fail(current) = false")
	}
	if a.Fetching() {
		t.Error("Fetching() = true after Fail")
	}
	if !a.HasMore() || a.Page() != 1 || a.Len() != 2 {
		t.Errorf("state changed by Fail: page=%d hasMore=%v len=%d", a.Page(), a.HasMore(), a.Len())
	}
	retry, ok := a.FetchNext()
	if !ok || retry.Page != 2 {
		t.Errorf("retry = %+v, %v; want page 2", retry, ok)
	}
}

func TestQuery_Equal(t *testing.T) {
	a := Query{Search: "x", Filters: map[string]string{"unit_id": "3", "empty": ""}}
	b := Query{Search: "x", Filters: map[string]string{"unit_id": "3"}}
	if !a.Equal(b) {
		t.Error("empty filter values should not affect equality")
	}
	if a.Equal(Query{Search: "x"}) {
		t.Error("queries with different filters compared equal")
	}
	if (Query{}).Equal(Query{Search: "y"}) {
		t.Error("queries with different searches compared equal")
	}
}

func TestAccumulator_OptionsIsACopy(t *testing.T) {
	a := NewAccumulator(5)
	req, _ := a.FetchNext()
	_ = a.Complete(req.Generation, model.OptionPage{Items: opts(1), Page: 1, Total: 1})
	got := a.Options()
	got[0].Label = "mutated"
	if a.Options()[0].Label == "mutated" {
		t.Error("Options() exposes internal storage")
	}
}
