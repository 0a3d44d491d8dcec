package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleUpdate routes one webhook update. Runs synchronously on the
// webhook goroutine; long operations (turn forwarding) hand off to
// background goroutines themselves.
func (b *Bridge) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bridge) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		b.client.AnswerCallback(cb.ID)
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	b.client.AnswerCallback(cb.ID)
	b.log.Debug("callback", slog.Int64("chat_id", chatID), slog.String("data", data))

	switch {
	case strings.HasPrefix(data, "resume:"):
		b.resumeSession(chatID, strings.TrimPrefix(data, "resume:"))

	case data == "continue_recent":
		if err := b.gw.StopClaude(""); err != nil {
			b.client.Reply(chatID, "Failed to stop Claude")
			return
		}
		if err := b.gw.StartClaudeContinue(""); err != nil {
			b.client.Reply(chatID, fmt.Sprintf("Failed to continue: %v", err))
			return
		}
		b.client.Reply(chatID, "Continuing most recent...")

	case data == "dismiss_msg":
		if err := b.client.DeleteMessage(chatID, cb.Message.MessageID); err != nil {
			b.log.Debug("dismiss_failed", slog.String("error", err.Error()))
		}

	case strings.HasPrefix(data, "attach:"):
		b.attachFromButton(chatID, cb.Message.MessageID, strings.TrimPrefix(data, "attach:"))

	case data == pickDismiss:
		b.dismiss(chatID)

	case strings.HasPrefix(data, pickPrefix):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, pickPrefix))
		if err != nil {
			b.client.Reply(chatID, "Invalid selection")
			return
		}
		b.pick(chatID, idx)
	}
}

func (b *Bridge) resumeSession(chatID int64, sessionID string) {
	if err := b.gw.StopClaude(""); err != nil {
		b.client.Reply(chatID, "Failed to stop Claude")
		return
	}
	if err := b.gw.StartClaudeResume("", sessionID); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to resume: %v", err))
		return
	}
	b.client.Reply(chatID, fmt.Sprintf("Resuming: %s...", shortID(sessionID)))
}

// attachFromButton switches the active session and refreshes the picker
// message in place so the marker follows the selection.
func (b *Bridge) attachFromButton(chatID int64, messageID int, name string) {
	if !b.gw.Exists(name) {
		b.client.Reply(chatID, fmt.Sprintf("❌ Session '%s' not found", name))
		return
	}
	if err := b.gw.SetCurrentSession(name); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to switch session: %v", err))
		return
	}
	sessions := b.gw.ListSessions()
	text := fmt.Sprintf("📺 Sessions (%d) — current: %s", len(sessions), name)
	if err := b.client.EditTextAndKeyboard(chatID, messageID, text, sessionsKeyboard(sessions, name)); err != nil {
		b.log.Debug("attach_edit_failed", slog.String("error", err.Error()))
	}
}

func (b *Bridge) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	text := msg.Text
	if text == "" {
		return
	}
	b.rememberChat(chatID)

	if strings.HasPrefix(text, "/") {
		if b.handleCommand(ctx, chatID, text) {
			return
		}
	}

	b.log.Info("message", slog.Int64("chat_id", chatID), slog.Int("len", len(text)))

	// A live selection menu intercepts typed text before it becomes a new
	// turn: the text answers the menu instead.
	if b.gw.Exists("") && b.answerPrompt(chatID, text) {
		return
	}

	b.forward(ctx, chatID, msg.MessageID, text)
}

// handlePhoto downloads the largest rendition and forwards its saved path.
// Album members buffer until the group debounce fires.
func (b *Bridge) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.rememberChat(chatID)

	// Renditions are ordered smallest to largest.
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	path, err := b.files.Download(fileID, "")
	if err != nil {
		b.client.Reply(chatID, "Failed to download photo")
		b.log.Warn("photo_download_failed", slog.String("error", err.Error()))
		return
	}
	b.client.React(chatID, msg.MessageID, "📷")

	if msg.MediaGroupID != "" {
		b.albums.Add(chatID, msg.MediaGroupID, path, strings.TrimSpace(msg.Caption))
		return
	}
	b.forward(ctx, chatID, 0, photoMessage(strings.TrimSpace(msg.Caption), path))
}
