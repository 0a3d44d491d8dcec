package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/crayonluffy/claudecode-telegram/internal/prompt"
)

// Callback data for prompt keyboards: "pick:<index>" selects an option,
// pickDismiss sends Escape instead.
const (
	pickPrefix  = "pick:"
	pickDismiss = "pick:dismiss"
)

const dismissButtonLabel = "--- Dismiss (Escape) ---"

// Keyboard renders parsed prompts as inline-keyboard messages. It is the
// monitor's publisher: Publish mirrors a menu into the chat, Retract
// replaces the mirror with a terminal status line.
type Keyboard struct {
	client *Client
}

// NewKeyboard returns a publisher sending through client.
func NewKeyboard(client *Client) *Keyboard {
	return &Keyboard{client: client}
}

// Publish sends the prompt as a message with one button per selectable
// option and returns the message ID for later retraction.
func (k *Keyboard) Publish(chatID int64, p *prompt.Prompt) (int, error) {
	return k.client.SendWithKeyboard(chatID, promptText(p), promptKeyboard(p.Options))
}

// Retract replaces a published control with a status line, removing its
// buttons.
func (k *Keyboard) Retract(chatID int64, messageID int, status string) error {
	return k.client.EditText(chatID, messageID, status)
}

// promptText renders the message body: the question and every option with
// its description, since buttons only have room for labels.
func promptText(p *prompt.Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interactive prompt:\n\n%s\n", p.Question)
	for _, o := range p.Options {
		fmt.Fprintf(&b, "\n  %s", o.Label)
		if o.Description != "" {
			fmt.Fprintf(&b, "\n    %s", o.Description)
		}
	}
	b.WriteString("\n\nOr type a message to skip this prompt.")
	return b.String()
}

// promptKeyboard builds one button row per option, skipping free-text
// placeholders (pressing Enter on those just declines the menu; typed
// messages route through them instead), plus a dismiss row.
func promptKeyboard(opts []prompt.Option) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, o := range opts {
		if prompt.IsPlaceholder(o.Label) {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				prompt.TruncateLabel(o.Label),
				fmt.Sprintf("%s%d", pickPrefix, i),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(dismissButtonLabel, pickDismiss),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
