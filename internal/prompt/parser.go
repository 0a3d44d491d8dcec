package prompt

import (
	"strings"
	"unicode/utf8"

	"github.com/crayonluffy/claudecode-telegram/internal/screen"
)

// fallbackQuestion substitutes when no question line is found above a menu.
const fallbackQuestion = "Select an option:"

// Parser detects interactive selection menus in normalized pane text.
//
// Claude Code renders AskUserQuestion menus like:
//
//	Question text here
//
//	› 1. Option A
//	    Description of A
//	  2. Option B
//	    Description of B
//
//	Enter to select · ↑/↓ to navigate · Esc to cancel
//
// Detection anchors on the footer line, which the TUI always prints directly
// beneath an active menu, then scans upward for the cursor glyph and option
// block. Scrollback above the menu is conversational noise and untrustworthy,
// so every scan is bounded. The window fields are tuned defaults, not
// invariants; anything bounded works.
type Parser struct {
	// FooterWindow is how many lines up from the bottom to search for the
	// navigation footer.
	FooterWindow int
	// CursorWindow is how many lines above the footer to search for the
	// cursor glyph line.
	CursorWindow int
	// OptionWindow is how many lines above the cursor line to search for
	// the first option of the menu.
	OptionWindow int
	// QuestionWindow is how many lines above the first option to search
	// for the question text.
	QuestionWindow int
}

// NewParser returns a parser with the tuned default window bounds.
func NewParser() *Parser {
	return &Parser{
		FooterWindow:   6,
		CursorWindow:   40,
		OptionWindow:   30,
		QuestionWindow: 10,
	}
}

// cursorRunes are the selection cursor glyphs Claude Code uses.
func isCursorRune(r rune) bool {
	return r == '❯' || r == '›' || r == '>'
}

// isHorizontalRule reports whether a line is a box-drawing rule (─────).
func isHorizontalRule(line string) bool {
	s := strings.TrimSpace(line)
	n := utf8.RuneCountInString(s)
	if n <= 10 {
		return false
	}
	return strings.Count(s, "─") > n*7/10
}

// isDashRun reports whether a trimmed line is a short decorative run of
// dash-like characters (skipped between options without ending the menu).
func isDashRun(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > 3 {
		return false
	}
	for _, r := range s {
		switch r {
		case '─', '—', '–', '-':
		default:
			return false
		}
	}
	return true
}

// hasBoxCorner reports whether a line contains rounded box-border corners,
// which delimit the menu frame from surrounding UI chrome.
func hasBoxCorner(s string) bool {
	return strings.ContainsAny(s, "╭╮╰╯")
}

// leadingIndent counts leading whitespace characters.
func leadingIndent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// cursorLine reports whether a trimmed line starts with a cursor glyph
// followed by a space.
func isCursorLine(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	if !isCursorRune(r) {
		return false
	}
	return len(s) > size && s[size] == ' '
}

// stripCursor removes the leading cursor glyph and its separator space.
func stripCursor(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return strings.TrimLeft(s[size:], " ")
}

// Parse extracts an interactive selection menu from pane text, or returns
// nil when no menu is present. Input may be raw (escape sequences are
// stripped first; stripping is idempotent). Detection errs toward false
// negatives: a false positive would publish a bogus remote control.
func (p *Parser) Parse(text string) *Prompt {
	lines := strings.Split(screen.StripANSI(text), "\n")

	// 1. Navigation footer at the bottom of the pane. Checking only the
	// last few lines avoids matching quoted footer text in conversation.
	footer := -1
	for i := len(lines) - 1; i >= 0 && i >= len(lines)-p.FooterWindow; i-- {
		s := strings.TrimSpace(lines[i])
		if strings.HasPrefix(s, "Enter") && strings.Contains(s, "to navigate") {
			footer = i
			break
		}
	}
	if footer < 0 {
		return nil
	}

	// 2. Cursor glyph line above the footer.
	cursor := -1
	for i := footer - 1; i >= 0 && i >= footer-p.CursorWindow; i-- {
		if isCursorLine(strings.TrimSpace(lines[i])) {
			cursor = i
			break
		}
	}
	if cursor < 0 {
		return nil
	}

	// 3. Option labels sit two columns right of the cursor glyph
	// (glyph + separator space).
	labelIndent := leadingIndent(lines[cursor]) + 2

	// 4. Scan up from the cursor for the first option line. Lines at or
	// left of labelIndent start options; deeper lines are wrapped
	// descriptions; a blank, rule, or border ends the block.
	firstOption := cursor
	for i := cursor - 1; i >= 0 && i >= cursor-p.OptionWindow; i-- {
		s := strings.TrimSpace(lines[i])
		if s == "" || isHorizontalRule(lines[i]) || hasBoxCorner(s) {
			break
		}
		indent := leadingIndent(lines[i])
		switch {
		case isCursorLine(s):
			firstOption = i
		case indent <= labelIndent:
			firstOption = i
		case indent > labelIndent:
			// description continuation, keep scanning
		}
	}

	// 5. Question: nearest meaningful line above the options.
	question := ""
	for i := firstOption - 1; i >= 0 && i >= firstOption-p.QuestionWindow; i-- {
		s := strings.TrimSpace(lines[i])
		if s == "" {
			continue
		}
		if isHorizontalRule(lines[i]) || hasBoxCorner(s) {
			break
		}
		if utf8.RuneCountInString(s) > 5 {
			question = s
			break
		}
	}
	if question == "" {
		question = fallbackQuestion
	}

	// 6. Collect options between the first option line and the footer.
	var options []Option
	highlighted := 0
	for i := firstOption; i < footer; i++ {
		line := lines[i]
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if strings.Contains(s, "to navigate") {
			break
		}
		if isHorizontalRule(line) || isDashRun(s) {
			continue
		}

		switch {
		case isCursorLine(s):
			highlighted = len(options)
			options = append(options, Option{Label: stripCursor(s)})
		case leadingIndent(line) <= labelIndent:
			options = append(options, Option{Label: s})
		case len(options) > 0:
			last := &options[len(options)-1]
			if last.Description != "" {
				last.Description += " " + s
			} else {
				last.Description = s
			}
		}
	}

	// 7. A real menu has at least two options.
	if len(options) < 2 {
		return nil
	}

	return &Prompt{
		Question:         question,
		Options:          options,
		HighlightedIndex: highlighted,
	}
}
