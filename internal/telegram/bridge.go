package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/crayonluffy/claudecode-telegram/internal/config"
	"github.com/crayonluffy/claudecode-telegram/internal/history"
	"github.com/crayonluffy/claudecode-telegram/internal/logging"
	"github.com/crayonluffy/claudecode-telegram/internal/prompt"
	"github.com/crayonluffy/claudecode-telegram/internal/screen"
	"github.com/crayonluffy/claudecode-telegram/internal/settings"
	"github.com/crayonluffy/claudecode-telegram/internal/tmux"
	"github.com/crayonluffy/claudecode-telegram/internal/turn"
)

const (
	// freeTextDelay separates arrowing onto the free-text placeholder from
	// typing into it, giving the TUI time to switch input modes.
	freeTextDelay = 200 * time.Millisecond

	// escapeSettleDelay separates dismissing a menu via Escape from the
	// follow-up message send.
	escapeSettleDelay = 500 * time.Millisecond

	// claudeInitDelay gives a freshly launched Claude Code instance time
	// to come up before the first message is typed at it.
	claudeInitDelay = 3 * time.Second
)

// Bridge ties the chat side to the terminal side: it owns the turn latch,
// the shared prompt state, and every collaborator the handlers need.
type Bridge struct {
	client   *Client
	gw       *tmux.Gateway
	latch    *turn.Latch
	state    *prompt.State
	selector *prompt.Selector
	keyboard *Keyboard
	hist     *history.Store
	prefs    *settings.Store
	files    *Downloader
	albums   *AlbumBuffer
	cfg      config.Config
	log      *slog.Logger

	// lastChatID is the chat of the most recent turn, for completion
	// notices fired from the latch watcher.
	lastChatID atomic.Int64
}

// NewBridge wires the bridge from its parts.
func NewBridge(client *Client, gw *tmux.Gateway, latch *turn.Latch, hist *history.Store, prefs *settings.Store, cfg config.Config) *Bridge {
	b := &Bridge{
		client:   client,
		gw:       gw,
		latch:    latch,
		state:    prompt.NewState(),
		hist:     hist,
		prefs:    prefs,
		cfg:      cfg,
		log:      logging.ForComponent(logging.CompBridge),
	}
	b.selector = prompt.NewSelector(paneKeys{gw})
	b.keyboard = NewKeyboard(client)
	b.files = NewDownloader(client, cfg.Paths.UploadDir)
	b.albums = NewAlbumBuffer(b.forwardAlbum)
	return b
}

// paneKeys adapts the gateway to the selector's key interface, always
// targeting the active session.
type paneKeys struct {
	gw *tmux.Gateway
}

func (k paneKeys) SendKey(name string) error {
	return k.gw.SendKey("", name)
}

// Capture returns the active pane's text with escape sequences stripped,
// in the shape the menu parser expects.
func (b *Bridge) Capture() (string, error) {
	raw, err := b.gw.CapturePane("")
	if err != nil {
		return "", err
	}
	return screen.StripANSI(raw), nil
}

// newMonitor builds a per-turn prompt monitor over the shared state.
func (b *Bridge) newMonitor() *prompt.Monitor {
	return prompt.NewMonitor(b.state, b.keyboard, b.Capture, b.latch.Pending)
}

// ensureSession makes sure the active tmux session exists with Claude Code
// running in it, creating it on demand. Reports whether it had to create.
func (b *Bridge) ensureSession() (created bool, err error) {
	session := b.gw.CurrentSession()
	if b.gw.Exists(session) {
		return false, nil
	}
	if err := b.gw.Create(session, b.cfg.Paths.ProjectsBase, true); err != nil {
		return false, err
	}
	return true, nil
}

// forward sends a user message into the Claude pane and starts a turn:
// raises the latch, records history, and spawns the typing refresher and
// the prompt monitor for the turn's duration.
func (b *Bridge) forward(ctx context.Context, chatID int64, messageID int, text string) {
	created, err := b.ensureSession()
	if err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to create tmux session: %v", err))
		return
	}
	if created {
		b.client.Reply(chatID, fmt.Sprintf("Created session '%s' and started Claude. Waiting for it to initialize...", b.gw.CurrentSession()))
		time.Sleep(claudeInitDelay)
	}

	if messageID != 0 {
		b.client.React(chatID, messageID, "✅")
	}

	if err := b.latch.Begin(); err != nil {
		b.log.Warn("latch_begin_failed", slog.String("error", err.Error()))
	}
	b.lastChatID.Store(chatID)
	b.rememberChat(chatID)
	b.recordTurn(text)

	if err := b.gw.SendMessage("", b.prefs.Load().NotePrefix()+text); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to send to Claude: %v", err))
		_ = b.latch.End()
		return
	}

	go KeepTyping(ctx, b.client, chatID, b.latch)
	go b.newMonitor().Run(ctx, chatID)
}

// forwardAlbum flushes a buffered photo album as one message referencing
// every saved file. Kept to a single line: newlines inside a pane send are
// interpreted as Enter.
func (b *Bridge) forwardAlbum(chatID int64, paths []string, caption string) {
	refs := make([]string, len(paths))
	for i, p := range paths {
		refs[i] = fmt.Sprintf("[Image: %s]", p)
	}
	text := fmt.Sprintf("Please analyze these %d images: %s", len(paths), strings.Join(refs, " "))
	if caption != "" {
		text = fmt.Sprintf("%s %s", caption, strings.Join(refs, " "))
	}
	b.forward(context.Background(), chatID, 0, text)
}

// photoMessage builds the pane message for a single saved photo.
func photoMessage(caption, path string) string {
	if caption != "" {
		return fmt.Sprintf("%s [Image: %s]", caption, path)
	}
	return fmt.Sprintf("Please analyze this image: %s", path)
}

// answerPrompt routes a typed message through a live menu. If the menu has
// a free-text placeholder option the text is typed into it; otherwise the
// menu is dismissed with Escape and the text sent as a regular message.
// Returns false when no prompt is live, leaving the caller to forward
// normally.
func (b *Bridge) answerPrompt(chatID int64, text string) bool {
	if b.state.Fingerprint() == "" {
		// Nothing published yet this tick; a menu may still be on screen
		// that the monitor hasn't reached. Reconcile synchronously.
		if !b.newMonitor().ReconcileOnce(chatID) {
			return false
		}
	}
	sel, ok := b.state.Claim()
	if !ok {
		return false
	}

	pi := prompt.PlaceholderIndex(sel.Options)
	if pi >= 0 {
		if err := b.selector.Navigate(pi, sel.Highlighted); err != nil {
			b.client.Reply(chatID, fmt.Sprintf("Failed to reach the text option: %v", err))
			return true
		}
		time.Sleep(freeTextDelay)
		if err := b.gw.SendText("", text); err == nil {
			_ = b.gw.SendEnter("")
		}
	} else {
		_ = b.gw.SendEscape("")
		time.Sleep(escapeSettleDelay)
		_ = b.gw.SendMessage("", text)
	}

	display := []rune(text)
	if len(display) > 40 {
		display = display[:40]
	}
	b.retractClaimed(sel, fmt.Sprintf("Custom answer: %s", string(display)))
	return true
}

// pick selects option index on the live menu: claim, arrow from the actual
// cursor position, confirm, then retract the control.
func (b *Bridge) pick(chatID int64, index int) {
	sel, ok := b.state.Claim()
	if !ok {
		b.client.Reply(chatID, "No active prompt to pick from.")
		return
	}
	if index < 0 || index >= len(sel.Options) {
		// The menu changed between publish and press.
		b.client.Reply(chatID, fmt.Sprintf("Prompt may have changed (options=%d, target=%d). Use /screenshot to check.", len(sel.Options), index))
		return
	}
	if err := b.selector.Select(index, sel.Highlighted); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to send selection: %v", err))
		return
	}
	b.retractClaimed(sel, fmt.Sprintf("Selected: %s", sel.Options[index].Label))
}

// dismiss sends Escape to the menu and retracts the control.
func (b *Bridge) dismiss(chatID int64) {
	_ = b.gw.SendEscape("")
	ch, msgID, bound := b.state.TakeBinding()
	if bound {
		b.retract(ch, msgID, "Dismissed (Escape sent)")
	} else {
		b.client.Reply(chatID, "Escape sent.")
	}
}

// interrupt stops the current turn: Escape to Claude, lower the latch, and
// retract any live control.
func (b *Bridge) interrupt(chatID int64) {
	_ = b.gw.SendEscape("")
	if err := b.latch.End(); err != nil {
		b.log.Warn("latch_end_failed", slog.String("error", err.Error()))
	}
	ch, msgID, bound := b.state.TakeBinding()
	if bound {
		b.retract(ch, msgID, "Interrupted by /stop")
	}
	b.client.Reply(chatID, "Interrupted")
}

func (b *Bridge) retractClaimed(sel prompt.Selection, status string) {
	if sel.MessageID != 0 {
		b.retract(sel.ChatID, sel.MessageID, status)
	}
}

func (b *Bridge) retract(chatID int64, messageID int, status string) {
	if err := b.keyboard.Retract(chatID, messageID, status); err != nil {
		b.log.Warn("retract_failed", slog.Int("message_id", messageID), slog.String("error", err.Error()))
	}
}

// NotifyTurnDone reports turn completion to the chat the turn came from.
// Wired to the latch watcher; also used on startup recovery.
func (b *Bridge) NotifyTurnDone() {
	chatID := b.lastChatID.Load()
	if chatID == 0 {
		if stored, ok := b.hist.ChatID(); ok {
			chatID = stored
		} else {
			return
		}
	}
	b.client.Reply(chatID, "✅ Claude finished.")
	if b.prefs.Load().Verbose {
		b.sendScreenshot(chatID, 0)
	}
}

// ResumeChatID returns the chat to re-attach a monitor to after a restart
// with a turn still pending.
func (b *Bridge) ResumeChatID() (int64, bool) {
	return b.hist.ChatID()
}

// ResumeMonitor re-attaches the typing refresher and prompt monitor to an
// in-flight turn, used when the bridge restarts mid-turn.
func (b *Bridge) ResumeMonitor(ctx context.Context, chatID int64) {
	b.lastChatID.Store(chatID)
	go KeepTyping(ctx, b.client, chatID, b.latch)
	go b.newMonitor().Run(ctx, chatID)
}

// rememberChat persists the chat binding so restarts can notify and resume.
func (b *Bridge) rememberChat(chatID int64) {
	if err := b.hist.SetChatID(chatID); err != nil {
		b.log.Warn("chat_bind_failed", slog.String("error", err.Error()))
	}
}

// recordTurn appends the turn to history under the pane's current project
// directory. The full path is stored so transcript session IDs can be
// resolved from it later.
func (b *Bridge) recordTurn(text string) {
	dir, err := b.gw.CurrentPath("")
	if err != nil || dir == "" {
		return
	}
	if err := b.hist.RecordTurn(dir, text); err != nil {
		b.log.Warn("history_record_failed", slog.String("error", err.Error()))
	}
}
