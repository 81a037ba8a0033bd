package ui

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// defaultWidth is used when stdout is not a terminal and COLUMNS is unset.
const defaultWidth = 100

// ShouldUseColor reports whether stdout output should carry ANSI colors.
func ShouldUseColor() bool {
	return colorWanted(os.Getenv, IsTerminal(os.Stdout))
}

// colorWanted applies the NO_COLOR, CLICOLOR_FORCE and CLICOLOR conventions
// in that order of precedence, falling back to tty.
func colorWanted(getenv func(string) string, tty bool) bool {
	if getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	return tty
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Interactive reports whether a person is typing at stdin and reading stdout,
// so prompts and hints are worth printing.
func Interactive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// Width returns the column count of stdout. Piped output uses $COLUMNS when
// it is set, else defaultWidth.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return widthFromEnv(os.Getenv("COLUMNS"))
}

func widthFromEnv(columns string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(columns)); err == nil && n > 0 {
		return n
	}
	return defaultWidth
}
