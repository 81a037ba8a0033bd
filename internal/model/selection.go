package model

import "encoding/json"

type selectionKind uint8

const (
	selectionEmpty selectionKind = iota
	selectionResolved
	selectionPending
)

// Selection is the value held by a catalog field. It is either empty, a
// resolved option with a real catalog id, or a label whose id is not yet known.
// A pending selection carries no id at all, so it can never collide with a
// real catalog entry.
type Selection struct {
	kind   selectionKind
	option Option
	label  string
}

// NoSelection is the empty selection.
var NoSelection = Selection{}

// Resolved returns a selection holding a concrete option.
func Resolved(opt Option) Selection {
	return Selection{kind: selectionResolved, option: opt, label: opt.Label}
}

// PendingByLabel returns a selection known only by its display label.
// An empty label yields the empty selection.
func PendingByLabel(label string) Selection {
	if label == "" {
		return NoSelection
	}
	return Selection{kind: selectionPending, label: label}
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool { return s.kind == selectionEmpty }

// IsResolved reports whether the selection carries a real catalog id.
func (s Selection) IsResolved() bool { return s.kind == selectionResolved }

// IsPending reports whether the selection is known only by label.
func (s Selection) IsPending() bool { return s.kind == selectionPending }

// Option returns the resolved option, if any.
func (s Selection) Option() (Option, bool) {
	if s.kind != selectionResolved {
		return Option{}, false
	}
	return s.option, true
}

// ID returns the resolved id, or "" for empty and pending selections.
func (s Selection) ID() ID {
	if s.kind != selectionResolved {
		return ""
	}
	return s.option.ID
}

// Label returns the display label of the selection.
func (s Selection) Label() string { return s.label }

// Equal reports whether two selections hold the same value.
func (s Selection) Equal(other Selection) bool {
	return s.kind == other.kind && s.option == other.option && s.label == other.label
}

// String renders the selection for logs and CLI output.
func (s Selection) String() string {
	switch s.kind {
	case selectionResolved:
		return s.option.Label + " (#" + string(s.option.ID) + ")"
	case selectionPending:
		return s.label + " (unresolved)"
	}
	return "(none)"
}

type selectionJSON struct {
	State string `json:"state"`
	ID    ID     `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
}

// MarshalJSON encodes the selection with an explicit state tag.
func (s Selection) MarshalJSON() ([]byte, error) {
	out := selectionJSON{State: "empty"}
	switch s.kind {
	case selectionResolved:
		out = selectionJSON{State: "resolved", ID: s.option.ID, Label: s.option.Label}
	case selectionPending:
		out = selectionJSON{State: "pending", Label: s.label}
	}
	return json.Marshal(out)
}
