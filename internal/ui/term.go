package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

// TermWidth returns the terminal width in columns, or 80 if it cannot be
// determined.
func TermWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // G115: fd fits in int
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// barWidth leaves room for the description, byte counts and rate that the
// progress bar prints around the bar itself.
func barWidth(cols int) int {
	return min(max(cols-60, 10), 50)
}
