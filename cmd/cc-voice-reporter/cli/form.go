package cli

import (
	"os"

	"github.com/charmbracelet/huh"
)

// NewAccessibleForm builds a huh.Form that falls back to simple
// line-by-line text prompts when the ACCESSIBLE environment variable is
// set, per the getting-started accessibility note in this CLI's help
// text. Screen readers struggle with huh's default TUI rendering.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithAccessible(os.Getenv("ACCESSIBLE") != "")
}
