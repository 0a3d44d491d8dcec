// Package screen turns raw tmux pane captures into plain text the prompt
// parser can work with. Only escape-sequence stripping is done here; line
// structure and horizontal whitespace are preserved exactly because column
// position carries meaning downstream (option label vs. wrapped description).
package screen

import "regexp"

// ansiRe matches CSI sequences (cursor movement, color/style), OSC sequences
// terminated by BEL, and character-set switch sequences.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|\x1b\].*?\x07|\x1b[()][AB012]`)

// StripANSI removes terminal escape sequences from text while preserving
// newlines and leading whitespace. It is total (never fails) and idempotent:
// stripping already-plain text is a no-op.
func StripANSI(text string) string {
	return ansiRe.ReplaceAllString(text, "")
}
