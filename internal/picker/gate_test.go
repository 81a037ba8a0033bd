package picker

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/model"
)

const (
	pinflA = "31234567890123"
	pinflB = "41234567890123"
)

func TestGate_InputPredicate(t *testing.T) {
	g := NewGate(GateConfig{})
	for _, v := range []string{"", "123", "3123456789012a", "312345678901234"} {
		if g.Input(v) {
			t.Errorf("Input(%q) scheduled a check", v)
		}
		if g.Verdict().Status != StatusUnknown {
			t.Errorf("Input(%q): status = %v, want unknown", v, g.Verdict().Status)
		}
	}
	if !g.Input(pinflA) {
		t.Errorf("Input(%q) should schedule a check", pinflA)
	}
}

func TestGate_OriginalValueIsNoConflict(t *testing.T) {
	g := NewGate(GateConfig{Original: pinflA})

	if g.Input(pinflA) {
		t.Fatal("original value should not schedule a check")
	}
	v := g.Verdict()
	if v.Status != StatusNoConflict || v.CheckedValue != pinflA {
		t.Errorf("verdict = %+v, want no_conflict for %s", v, pinflA)
	}
	if !g.AllowsSubmit() {
		t.Error("original value should allow submit")
	}
	if g.Settled(pinflA) {
		t.Error("Settled(original) should not check")
	}
	if g.Checks() != 0 {
		t.Errorf("Checks() = %d, want 0", g.Checks())
	}
}

func TestGate_SettledRefusesSuperseded(t *testing.T) {
	g := NewGate(GateConfig{})
	g.Input(pinflA)
	g.Input(pinflB)
	if g.Settled(pinflA) {
		t.Error("superseded value was checked")
	}
	if !g.Settled(pinflB) {
		t.Error("live value was not checked")
	}
	if g.Checks() != 1 {
		t.Errorf("Checks() = %d, want 1", g.Checks())
	}
}

func TestGate_Results(t *testing.T) {
	for _, tc := range []struct {
		name       string
		resp       *client.CheckIdentityResponse
		err        error
		wantStatus Status
		wantSubmit bool
		wantMsg    string
	}{
		{
			name:       "NotExists",
			resp:       &client.CheckIdentityResponse{Exists: false},
			wantStatus: StatusNotExists,
			wantSubmit: true,
		},
		{
			name:       "Exists",
			resp:       &client.CheckIdentityResponse{Exists: true, Message: "belongs to Karimov", MatchedRecordID: 9},
			wantStatus: StatusExists,
			wantMsg:    "pinfl: already exists: belongs to Karimov",
		},
		{
			name:       "TransportError",
			err:        errors.New("connection refused"),
			wantStatus: StatusUnknown,
			wantMsg:    "pinfl: identity check failed: connection refused",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGate(GateConfig{})
			g.Input(pinflA)
			g.Settled(pinflA)
			if !g.Result(pinflA, tc.resp, tc.err) {
				t.Fatal("Result for the live value was discarded")
			}
			if g.Verdict().Status != tc.wantStatus {
				t.Errorf("status = %v, want %v", g.Verdict().Status, tc.wantStatus)
			}
			if g.AllowsSubmit() != tc.wantSubmit {
				t.Errorf("AllowsSubmit() = %v, want %v", g.AllowsSubmit(), tc.wantSubmit)
			}
			var ve model.ValidationError
			g.validate(&ve)
			if tc.wantMsg == "" {
				if ve.HasErrors() {
					t.Errorf("unexpected validation error: %v", &ve)
				}
				return
			}
			if !strings.Contains(ve.Error(), tc.wantMsg) {
				t.Errorf("validation = %q, want it to contain %q", ve.Error(), tc.wantMsg)
			}
		})
	}
}

func TestGate_StaleResultDiscarded(t *testing.T) {
	g := NewGate(GateConfig{})
	g.Input(pinflA)
	g.Settled(pinflA)
	g.Input(pinflB)

	if g.Result(pinflA, &client.CheckIdentityResponse{Exists: false}, nil) {
		t.Fatal("result for a superseded value was applied")
	}
	if g.AllowsSubmit() {
		t.Error("stale result unlocked submit")
	}
	var ve model.ValidationError
	g.validate(&ve)
	if !strings.Contains(ve.Error(), "has not been checked yet") {
		t.Errorf("validation = %q", ve.Error())
	}
}

func TestGate_ValidateMessages(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  string
	}{
		{"", "pinfl: is required"},
		{"12345", "pinfl: has an invalid format"},
		{pinflA, "pinfl: has not been checked yet"},
	} {
		g := NewGate(GateConfig{})
		g.Input(tc.value)
		var ve model.ValidationError
		g.validate(&ve)
		if !strings.Contains(ve.Error(), tc.want) {
			t.Errorf("value %q: validation = %q, want %q", tc.value, ve.Error(), tc.want)
		}
	}
}

func TestDebouncer_DeliversLastValue(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	fired := make(chan struct{}, 10)
	d := NewDebouncer(30*time.Millisecond, func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		fired <- struct{}{}
	})
	defer d.Stop()

	for _, v := range []string{"3", "31", "312", "3123"} {
		d.Push(v)
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Pending() {
		t.Error("Pending() = false during the quiet period")
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "3123" {
		t.Errorf("delivered %v, want [3123]", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	fired := make(chan string, 1)
	d := NewDebouncer(20*time.Millisecond, func(v string) { fired <- v })
	d.Push("x")
	d.Cancel()
	if d.Pending() {
		t.Error("Pending() = true after Cancel")
	}
	select {
	case v := <-fired:
		t.Errorf("cancelled value %q was delivered", v)
	case <-time.After(80 * time.Millisecond):
	}

	// A push after Cancel still works.
	d.Push("y")
	select {
	case v := <-fired:
		if v != "y" {
			t.Errorf("delivered %q, want y", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired after Cancel")
	}
}

func TestDebouncer_StopIgnoresPushes(t *testing.T) {
	fired := make(chan string, 1)
	d := NewDebouncer(10*time.Millisecond, func(v string) { fired <- v })
	d.Stop()
	d.Push("x")
	select {
	case v := <-fired:
		t.Errorf("stopped debouncer delivered %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}
