package prompt

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestFingerprintStableAcrossRedraws(t *testing.T) {
	a := &Prompt{
		Question: "Proceed?",
		Options: []Option{
			{Label: "1. Yes", Description: "apply the edit"},
			{Label: "2. No"},
		},
		HighlightedIndex: 0,
	}
	// Same menu after scrolling: description reflowed, cursor moved.
	b := &Prompt{
		Question: "Proceed?",
		Options: []Option{
			{Label: "1. Yes", Description: "apply the edit and continue"},
			{Label: "2. No"},
		},
		HighlightedIndex: 1,
	}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("fingerprint must ignore descriptions and cursor position")
	}
}

func TestFingerprintDistinguishesPrompts(t *testing.T) {
	base := &Prompt{Question: "Proceed?", Options: []Option{{Label: "1. Yes"}, {Label: "2. No"}}}
	cases := []*Prompt{
		{Question: "Continue?", Options: []Option{{Label: "1. Yes"}, {Label: "2. No"}}},
		{Question: "Proceed?", Options: []Option{{Label: "1. Yes"}, {Label: "2. Never"}}},
		{Question: "Proceed?", Options: []Option{{Label: "2. No"}, {Label: "1. Yes"}}},
		{Question: "Proceed?", Options: []Option{{Label: "1. Yes"}, {Label: "2. No"}, {Label: "3. Ask"}}},
	}
	for i, c := range cases {
		if Fingerprint(base) == Fingerprint(c) {
			t.Errorf("case %d: distinct prompts share a fingerprint", i)
		}
	}
}

func TestIsPlaceholder(t *testing.T) {
	cases := []struct {
		label string
		want  bool
	}{
		{"Other", true},
		{"other", true},
		{"3. Other", true},
		{"Type something.", true},
		{"2. Type something", true},
		{"  5.  type something.  ", true},
		{"1. Yes", false},
		{"Otherwise", false},
		{"Something else entirely", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsPlaceholder(c.label); got != c.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", c.label, got, c.want)
		}
	}
}

func TestPlaceholderIndex(t *testing.T) {
	opts := []Option{
		{Label: "1. Yes"},
		{Label: "2. No"},
		{Label: "3. Type something."},
	}
	if got := PlaceholderIndex(opts); got != 2 {
		t.Errorf("PlaceholderIndex = %d, want 2", got)
	}
	if got := PlaceholderIndex(opts[:2]); got != -1 {
		t.Errorf("PlaceholderIndex without placeholder = %d, want -1", got)
	}
}

func TestTruncateLabel(t *testing.T) {
	short := "1. Yes"
	if got := TruncateLabel(short); got != short {
		t.Errorf("short label altered: %q", got)
	}

	long := strings.Repeat("a", 100)
	got := TruncateLabel(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated label missing ellipsis: %q", got)
	}
	if w := runewidth.StringWidth(got); w > maxLabelWidth {
		t.Errorf("truncated width = %d, want <= %d", w, maxLabelWidth)
	}

	// Wide runes count double; truncation budgets display cells, not runes.
	wide := strings.Repeat("漢", 50)
	got = TruncateLabel(wide)
	if w := runewidth.StringWidth(got); w > maxLabelWidth {
		t.Errorf("wide-rune truncated width = %d, want <= %d", w, maxLabelWidth)
	}
}
