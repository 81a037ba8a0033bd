package ui

import (
	"fmt"
	"strings"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorOK     = 71  // green
	colorWarn   = 179 // amber
	colorError  = 167 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderOK returns s in green.
func RenderOK(s string) string { return paint(colorOK, s) }

// RenderWarn returns s in amber.
func RenderWarn(s string) string { return paint(colorWarn, s) }

// RenderError returns s in red.
func RenderError(s string) string { return paint(colorError, s) }

// RenderState colors a field or check state name: settled states green,
// in-progress states amber, failures red and anything else muted.
func RenderState(state string) string {
	switch strings.ToLower(state) {
	case "resolved", "selected", "available", "ok":
		return RenderOK(state)
	case "pending", "seeking", "checking", "fetching":
		return RenderWarn(state)
	case "exhausted", "failed", "conflict", "error", "unknown":
		return RenderError(state)
	}
	return RenderMuted(state)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// Truncate shortens s to at most width runes, ending in "…" when cut.
// A non-positive width leaves s unchanged.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
