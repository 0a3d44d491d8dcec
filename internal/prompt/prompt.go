// Package prompt implements the interactive-prompt bridge core: detecting
// selection menus on a Claude Code tmux pane, mirroring them as remote
// controls, and translating remote selections back into key presses.
package prompt

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Option is a single selectable menu entry. Description is empty when the
// menu renders no wrapped detail text under the label.
type Option struct {
	Label       string
	Description string
}

// Prompt is a parsed interactive selection menu.
type Prompt struct {
	Question         string
	Options          []Option
	HighlightedIndex int
}

// fpSep joins fingerprint parts. The unit separator never appears in
// rendered pane text, unlike "|" which shows up in table output.
const fpSep = "\x1f"

// Fingerprint derives a stable identity for a prompt from its question and
// ordered option labels. Descriptions are excluded: they wrap and reflow
// across redraws without changing prompt identity.
func Fingerprint(p *Prompt) string {
	parts := make([]string, 0, len(p.Options)+1)
	parts = append(parts, p.Question)
	for _, o := range p.Options {
		parts = append(parts, o.Label)
	}
	return strings.Join(parts, fpSep)
}

var enumPrefixRe = regexp.MustCompile(`^\d+\.\s*`)

// placeholderLabels are option labels Claude Code uses for free-text entry.
// Selecting them via Enter just declines the menu, so the keyboard hides
// them; typing a message routes through them instead.
var placeholderLabels = map[string]bool{
	"other":          true,
	"type something": true,
}

// IsPlaceholder reports whether an option label is a free-text placeholder,
// matched case-insensitively with any leading enumeration ("1. ") stripped.
func IsPlaceholder(label string) bool {
	clean := enumPrefixRe.ReplaceAllString(strings.TrimSpace(label), "")
	clean = strings.TrimRight(strings.ToLower(strings.TrimSpace(clean)), ".")
	return placeholderLabels[clean]
}

// PlaceholderIndex returns the index of the first free-text placeholder
// option, or -1 if the menu has none.
func PlaceholderIndex(opts []Option) int {
	for i, o := range opts {
		if IsPlaceholder(o.Label) {
			return i
		}
	}
	return -1
}

// maxLabelWidth is the display width budget for keyboard button labels.
const maxLabelWidth = 60

// TruncateLabel shortens a label to the button width budget, measured in
// display cells so wide runes don't overflow.
func TruncateLabel(label string) string {
	if runewidth.StringWidth(label) <= maxLabelWidth {
		return label
	}
	return runewidth.Truncate(label, maxLabelWidth, "...")
}
