package telegram

import (
	"strings"
	"testing"

	"github.com/crayonluffy/claudecode-telegram/internal/prompt"
)

func TestPromptTextIncludesQuestionOptionsAndHint(t *testing.T) {
	p := &prompt.Prompt{
		Question: "Proceed with changes?",
		Options: []prompt.Option{
			{Label: "1. Yes"},
			{Label: "2. No", Description: "keep everything as is"},
		},
	}
	text := promptText(p)

	if !strings.HasPrefix(text, "Interactive prompt:\n\nProceed with changes?\n") {
		t.Fatalf("unexpected header: %q", text)
	}
	for _, want := range []string{"\n  1. Yes", "\n  2. No", "\n    keep everything as is"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
	if !strings.HasSuffix(text, "Or type a message to skip this prompt.") {
		t.Errorf("text missing skip hint:\n%s", text)
	}
}

func TestPromptKeyboardOneButtonPerOptionPlusDismiss(t *testing.T) {
	kb := promptKeyboard([]prompt.Option{
		{Label: "1. Yes"},
		{Label: "2. No"},
	})

	if got := len(kb.InlineKeyboard); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	if data := *kb.InlineKeyboard[0][0].CallbackData; data != "pick:0" {
		t.Errorf("first button data = %q, want pick:0", data)
	}
	if label := kb.InlineKeyboard[1][0].Text; label != "2. No" {
		t.Errorf("second button label = %q", label)
	}
	last := kb.InlineKeyboard[2][0]
	if last.Text != dismissButtonLabel || *last.CallbackData != pickDismiss {
		t.Errorf("dismiss row = %q / %q", last.Text, *last.CallbackData)
	}
}

func TestPromptKeyboardSkipsPlaceholders(t *testing.T) {
	kb := promptKeyboard([]prompt.Option{
		{Label: "1. Yes"},
		{Label: "2. Type something."},
		{Label: "3. No"},
	})

	// Placeholder hidden, but indices still address the full option list.
	if got := len(kb.InlineKeyboard); got != 3 {
		t.Fatalf("rows = %d, want 3 (two options + dismiss)", got)
	}
	if data := *kb.InlineKeyboard[1][0].CallbackData; data != "pick:2" {
		t.Errorf("second visible button data = %q, want pick:2", data)
	}
}

func TestPromptKeyboardTruncatesLongLabels(t *testing.T) {
	long := strings.Repeat("x", 120)
	kb := promptKeyboard([]prompt.Option{
		{Label: long},
		{Label: "2. No"},
	})
	label := kb.InlineKeyboard[0][0].Text
	if len(label) >= len(long) {
		t.Errorf("label not truncated: %d runes", len(label))
	}
	if !strings.HasSuffix(label, "...") {
		t.Errorf("truncated label missing ellipsis: %q", label)
	}
}
