package cli

import (
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// NewAccessibleForm builds a huh form that falls back to plain stdin/stdout
// prompts (no TUI redraws) whenever stdout isn't a real terminal, or the
// ACCESSIBLE environment variable is set — the same gate Entire's setup
// flow uses for screen-reader friendliness and for driving prompts from a
// pty in tests.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...)

	accessible := os.Getenv("ACCESSIBLE") != "" || !term.IsTerminal(int(os.Stdout.Fd()))
	return form.WithAccessible(accessible)
}
