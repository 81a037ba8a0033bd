package picker

import (
	"time"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/model"
)

// Status is the verdict of the identity uniqueness check.
type Status int

const (
	StatusUnknown Status = iota
	StatusExists
	StatusNotExists
	// StatusNoConflict means the value equals the record's own original value.
	StatusNoConflict
)

func (s Status) String() string {
	switch s {
	case StatusExists:
		return "exists"
	case StatusNotExists:
		return "not_exists"
	case StatusNoConflict:
		return "no_conflict"
	}
	return "unknown"
}

// GateConfig configures an identity Gate.
type GateConfig struct {
	// Field names the identity field in validation errors (default "pinfl").
	Field string
	// Predicate reports whether a value is well-formed enough to check
	// (default model.ValidPINFL).
	Predicate func(string) bool
	// Delay is the quiet period before a check is sent.
	Delay time.Duration
	// Original is the value stored on the record being edited, if any.
	Original string
}

// Verdict is a read-only view of the gate.
type Verdict struct {
	Value           string
	Status          Status
	Message         string
	CheckedValue    string
	MatchedRecordID int64
	Err             error
}

// Gate tracks the uniqueness verdict for one identifier input. Like the
// Accumulator it is driven from a Form's event loop.
type Gate struct {
	cfg GateConfig

	value     string
	status    Status
	message   string
	checked   string
	matchedID int64
	err       error
	checks    int
}

// NewGate returns a gate in the Unknown state.
func NewGate(cfg GateConfig) *Gate {
	if cfg.Field == "" {
		cfg.Field = "pinfl"
	}
	if cfg.Predicate == nil {
		cfg.Predicate = model.ValidPINFL
	}
	return &Gate{cfg: cfg}
}

// Input records a new live value. It reports whether a check should be
// scheduled after the quiet period.
func (g *Gate) Input(v string) bool {
	g.value = v
	g.message = ""
	g.matchedID = 0
	g.err = nil
	g.checked = ""
	g.status = StatusUnknown

	if !g.cfg.Predicate(v) {
		return false
	}
	if g.cfg.Original != "" && v == g.cfg.Original {
		g.status = StatusNoConflict
		g.checked = v
		return false
	}
	return true
}

// Settled reports whether a value whose quiet period just ended should be
// checked. Values superseded by later input are refused.
func (g *Gate) Settled(v string) bool {
	if v != g.value || !g.cfg.Predicate(v) || g.status == StatusNoConflict {
		return false
	}
	g.checks++
	return true
}

// Result applies the response of a check sent for v. A response for a value
// that is no longer the live input is discarded and Result returns false.
func (g *Gate) Result(v string, resp *client.CheckIdentityResponse, err error) bool {
	if v != g.value {
		return false
	}
	g.checked = v
	if err != nil {
		g.status = StatusUnknown
		g.err = err
		return true
	}
	g.err = nil
	g.message = resp.Message
	g.matchedID = resp.MatchedRecordID
	if resp.Exists {
		g.status = StatusExists
	} else {
		g.status = StatusNotExists
	}
	return true
}

// Verdict returns the current state.
func (g *Gate) Verdict() Verdict {
	return Verdict{
		Value:           g.value,
		Status:          g.status,
		Message:         g.message,
		CheckedValue:    g.checked,
		MatchedRecordID: g.matchedID,
		Err:             g.err,
	}
}

// AllowsSubmit is true only when the live value was checked and has no conflict.
func (g *Gate) AllowsSubmit() bool {
	if g.checked != g.value {
		return false
	}
	return g.status == StatusNotExists || g.status == StatusNoConflict
}

// Checks returns how many checks the gate has asked for.
func (g *Gate) Checks() int { return g.checks }

// validate adds the gate's objections to ve.
func (g *Gate) validate(ve *model.ValidationError) {
	if g.AllowsSubmit() {
		return
	}
	field := g.cfg.Field
	switch {
	case g.value == "":
		ve.Add(field, "is required")
	case !g.cfg.Predicate(g.value):
		ve.Add(field, "has an invalid format")
	case g.err != nil && g.checked == g.value:
		ve.Add(field, "identity check failed: %v", g.err)
	case g.status == StatusExists:
		if g.message != "" {
			ve.Add(field, "already exists: %s", g.message)
		} else {
			ve.Add(field, "already exists")
		}
	default:
		ve.Add(field, "has not been checked yet")
	}
}
