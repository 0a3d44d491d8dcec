package telegram

import (
	"context"
	"time"

	"github.com/crayonluffy/claudecode-telegram/internal/turn"
)

// Telegram drops the typing indicator after ~5s, so refresh a little
// faster than that for as long as a turn is running.
const typingRefresh = 4 * time.Second

// KeepTyping shows the typing indicator until the turn latch lowers or
// ctx is cancelled.
func KeepTyping(ctx context.Context, client *Client, chatID int64, latch *turn.Latch) {
	client.Typing(chatID)
	t := time.NewTicker(typingRefresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !latch.Pending() {
				return
			}
			client.Typing(chatID)
		}
	}
}
