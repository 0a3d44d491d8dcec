package prompt

import (
	"reflect"
	"strings"
	"testing"
)

const footerLine = "Enter to select · ↑/↓ to navigate · Esc to cancel"

func basicMenu() string {
	return strings.Join([]string{
		"Proceed with changes?",
		"",
		"› 1. Yes",
		"  2. No",
		"",
		footerLine,
	}, "\n")
}

func TestParseBasicMenu(t *testing.T) {
	p := NewParser().Parse(basicMenu())
	if p == nil {
		t.Fatal("expected a parsed prompt, got nil")
	}
	if p.Question != "Proceed with changes?" {
		t.Errorf("question = %q", p.Question)
	}
	want := []Option{{Label: "1. Yes"}, {Label: "2. No"}}
	if !reflect.DeepEqual(p.Options, want) {
		t.Errorf("options = %+v, want %+v", p.Options, want)
	}
	if p.HighlightedIndex != 0 {
		t.Errorf("highlighted = %d, want 0", p.HighlightedIndex)
	}
}

func TestParseNoFooterNoPrompt(t *testing.T) {
	text := strings.Join([]string{
		"Proceed with changes?",
		"",
		"› 1. Yes",
		"  2. No",
	}, "\n")
	if p := NewParser().Parse(text); p != nil {
		t.Errorf("expected nil without footer, got %+v", p)
	}
}

func TestParseFooterWithoutCursor(t *testing.T) {
	text := strings.Join([]string{
		"some scrollback output",
		"",
		footerLine,
	}, "\n")
	if p := NewParser().Parse(text); p != nil {
		t.Errorf("expected nil without cursor glyph, got %+v", p)
	}
}

func TestParseSingleOptionRejected(t *testing.T) {
	text := strings.Join([]string{
		"Pick one:",
		"",
		"› 1. Only choice",
		"",
		footerLine,
	}, "\n")
	if p := NewParser().Parse(text); p != nil {
		t.Errorf("menus with fewer than 2 options must be rejected, got %+v", p)
	}
}

func TestParseIdempotent(t *testing.T) {
	text := basicMenu()
	a := NewParser().Parse(text)
	b := NewParser().Parse(text)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("parse not deterministic: %+v vs %+v", a, b)
	}
}

func TestParseDescriptionsAttach(t *testing.T) {
	text := strings.Join([]string{
		"Which approach should I take?",
		"",
		"  › 1. Refactor incrementally",
		"      Keep the public API stable while moving",
		"      internals one package at a time",
		"    2. Rewrite the module",
		"      Faster end state, riskier transition",
		"",
		footerLine,
	}, "\n")
	p := NewParser().Parse(text)
	if p == nil {
		t.Fatal("expected a parsed prompt")
	}
	if len(p.Options) != 2 {
		t.Fatalf("options = %+v", p.Options)
	}
	if p.Options[0].Label != "1. Refactor incrementally" {
		t.Errorf("label[0] = %q", p.Options[0].Label)
	}
	wantDesc := "Keep the public API stable while moving internals one package at a time"
	if p.Options[0].Description != wantDesc {
		t.Errorf("desc[0] = %q, want %q", p.Options[0].Description, wantDesc)
	}
	if p.Options[1].Description != "Faster end state, riskier transition" {
		t.Errorf("desc[1] = %q", p.Options[1].Description)
	}
	if p.HighlightedIndex != 0 {
		t.Errorf("highlighted = %d", p.HighlightedIndex)
	}
}

func TestParseCursorOnLaterOption(t *testing.T) {
	text := strings.Join([]string{
		"Choose a model:",
		"",
		"  1. Small",
		"  2. Medium",
		"› 3. Large",
		"",
		footerLine,
	}, "\n")
	p := NewParser().Parse(text)
	if p == nil {
		t.Fatal("expected a parsed prompt")
	}
	if len(p.Options) != 3 {
		t.Fatalf("options = %+v", p.Options)
	}
	if p.HighlightedIndex != 2 {
		t.Errorf("highlighted = %d, want 2", p.HighlightedIndex)
	}
	if p.Options[2].Label != "3. Large" {
		t.Errorf("label[2] = %q", p.Options[2].Label)
	}
}

func TestParseAlternateCursorGlyphs(t *testing.T) {
	for _, glyph := range []string{"❯", "›", ">"} {
		text := strings.Join([]string{
			"Continue with the plan?",
			"",
			glyph + " 1. Yes",
			"  2. No",
			"",
			footerLine,
		}, "\n")
		p := NewParser().Parse(text)
		if p == nil {
			t.Errorf("glyph %q not recognized", glyph)
			continue
		}
		if p.Options[0].Label != "1. Yes" {
			t.Errorf("glyph %q: label = %q", glyph, p.Options[0].Label)
		}
	}
}

func TestParseSkipsDecorativeRules(t *testing.T) {
	text := strings.Join([]string{
		"Select a branch strategy:",
		"",
		"› 1. Merge",
		"──",
		"  2. Rebase",
		"",
		footerLine,
	}, "\n")
	p := NewParser().Parse(text)
	if p == nil {
		t.Fatal("expected a parsed prompt")
	}
	if len(p.Options) != 2 {
		t.Errorf("decorative rule leaked into options: %+v", p.Options)
	}
}

func TestParseQuestionFallback(t *testing.T) {
	// Nothing meaningful above the options: substitutes generic question.
	text := strings.Join([]string{
		"───────────────────────────",
		"› 1. Yes",
		"  2. No",
		"",
		footerLine,
	}, "\n")
	p := NewParser().Parse(text)
	if p == nil {
		t.Fatal("expected a parsed prompt")
	}
	if p.Question != "Select an option:" {
		t.Errorf("question = %q, want fallback", p.Question)
	}
}

func TestParseQuestionStopsAtBoxBorder(t *testing.T) {
	text := strings.Join([]string{
		"This line is above the box and must not be the question",
		"╭──────────────────────────╮",
		"› 1. Yes",
		"  2. No",
		"",
		footerLine,
	}, "\n")
	p := NewParser().Parse(text)
	if p == nil {
		t.Fatal("expected a parsed prompt")
	}
	if p.Question != "Select an option:" {
		t.Errorf("question crossed a box border: %q", p.Question)
	}
}

func TestParseFooterOnlyMatchesBottomLines(t *testing.T) {
	var lines []string
	lines = append(lines, "Proceed with changes?", "", "› 1. Yes", "  2. No", "", footerLine)
	// Push the footer out of the bottom window with trailing output.
	for i := 0; i < 10; i++ {
		lines = append(lines, "trailing shell output")
	}
	if p := NewParser().Parse(strings.Join(lines, "\n")); p != nil {
		t.Errorf("footer in scrollback must not match, got %+v", p)
	}
}

func TestParseIgnoresAnsiSequences(t *testing.T) {
	text := strings.Join([]string{
		"\x1b[1mProceed with changes?\x1b[0m",
		"",
		"\x1b[36m› 1. Yes\x1b[0m",
		"\x1b[2m  2. No\x1b[0m",
		"",
		footerLine,
	}, "\n")
	p := NewParser().Parse(text)
	if p == nil {
		t.Fatal("expected a parsed prompt despite escape sequences")
	}
	if p.Options[0].Label != "1. Yes" {
		t.Errorf("label = %q", p.Options[0].Label)
	}
}

func TestParseIndentedMenu(t *testing.T) {
	// Claude Code indents the whole menu inside its response block.
	text := strings.Join([]string{
		"  Which file should I edit first?",
		"",
		"  › 1. main.go",
		"    2. handler.go",
		"    3. Type something.",
		"",
		"  " + footerLine,
	}, "\n")
	p := NewParser().Parse(text)
	if p == nil {
		t.Fatal("expected a parsed prompt")
	}
	if len(p.Options) != 3 {
		t.Fatalf("options = %+v", p.Options)
	}
	if p.Question != "Which file should I edit first?" {
		t.Errorf("question = %q", p.Question)
	}
}

func TestParseCustomWindows(t *testing.T) {
	// Window bounds are configurable, not load-bearing constants: a tiny
	// cursor window makes a distant cursor invisible.
	parser := &Parser{FooterWindow: 6, CursorWindow: 1, OptionWindow: 30, QuestionWindow: 10}
	text := strings.Join([]string{
		"Proceed with changes?",
		"› 1. Yes",
		"  2. No",
		"",
		"",
		footerLine,
	}, "\n")
	if p := parser.Parse(text); p != nil {
		t.Errorf("cursor outside window must be invisible, got %+v", p)
	}
	if p := NewParser().Parse(text); p == nil {
		t.Error("default windows should still find the cursor")
	}
}

func TestParseEmptyAndGarbage(t *testing.T) {
	for _, text := range []string{"", "\n\n\n", "just some prose\nwith lines\n", "to navigate"} {
		if p := NewParser().Parse(text); p != nil {
			t.Errorf("Parse(%q) = %+v, want nil", text, p)
		}
	}
}
