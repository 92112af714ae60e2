package ui

import (
	"regexp"

	"github.com/charmbracelet/lipgloss"
)

// keyRe matches a JSON key emitted by MarshalIndent, e.g. "status":
var keyRe = regexp.MustCompile(`"([^"]+)":`)

// keyStyle is bold + amber (ANSI 256 colour 214).
var keyStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("214"))

// highlightJSONKeys colours every JSON key in the attribute pane and
// leaves values untouched. Input must already be valid, indented JSON.
// The function is side-effect-free and idempotent.
func highlightJSONKeys(src string) string {
	return keyRe.ReplaceAllStringFunc(src, func(m string) string {
		sub := keyRe.FindStringSubmatch(m)
		if len(sub) < 2 {
			return m
		}
		return keyStyle.Render(`"`+sub[1]+`"`) + ":"
	})
}
