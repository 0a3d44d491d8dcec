package prompt

import (
	"context"
	"log/slog"
	"time"

	"github.com/crayonluffy/claudecode-telegram/internal/logging"
)

// Retraction status lines shown when a control's buttons are removed.
const (
	StatusSuperseded = "Previous prompt superseded"
	StatusResolved   = "Prompt was resolved"
	StatusCompleted  = "Request completed"
)

// Publisher renders parsed prompts as remote controls. Publish returns the
// message binding for later retraction; Retract replaces the control with a
// terminal status line.
type Publisher interface {
	Publish(chatID int64, p *Prompt) (messageID int, err error)
	Retract(chatID int64, messageID int, status string) error
}

// CaptureFunc returns the current pane text. An empty result means the
// capture failed or the pane is empty; it must not be treated as "the
// prompt disappeared".
type CaptureFunc func() (string, error)

// PendingFunc reports whether the owning turn is still in flight.
type PendingFunc func() bool

// Monitor polls a terminal pane for interactive menus while a turn is
// pending, reconciling the shared State against what is actually on screen.
// One monitor runs per conversational turn; overlapping monitors are
// tolerated because all mutation serializes through the State lock.
type Monitor struct {
	state   *State
	pub     Publisher
	capture CaptureFunc
	pending PendingFunc
	parser  *Parser

	// Interval between reconciliation ticks.
	Interval time.Duration
	// StartupDelay before the first tick, letting the TUI paint the menu.
	StartupDelay time.Duration

	log *slog.Logger
}

// NewMonitor wires a monitor over the shared state and collaborators.
func NewMonitor(state *State, pub Publisher, capture CaptureFunc, pending PendingFunc) *Monitor {
	return &Monitor{
		state:        state,
		pub:          pub,
		capture:      capture,
		pending:      pending,
		parser:       NewParser(),
		Interval:     500 * time.Millisecond,
		StartupDelay: 500 * time.Millisecond,
		log:          logging.ForComponent(logging.CompPrompt),
	}
}

// Run polls until the turn completes or ctx is canceled, then tears down
// any control still bound. Blocking; callers start it in a goroutine.
func (m *Monitor) Run(ctx context.Context, chatID int64) {
	m.log.Debug("monitor_started", slog.Int64("chat_id", chatID))
	defer m.teardown(chatID)

	select {
	case <-ctx.Done():
		return
	case <-time.After(m.StartupDelay):
	}

	for m.pending() {
		m.ReconcileOnce(chatID)
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.Interval):
		}
	}
}

// ReconcileOnce performs a single capture-parse-reconcile step. It returns
// true when a menu is currently live (either just published or already
// bound). Also called synchronously by the free-text handler before
// claiming a prompt.
func (m *Monitor) ReconcileOnce(chatID int64) bool {
	raw, err := m.capture()
	if err != nil {
		// Transient capture failure: skip this tick, state untouched.
		// Only an actual parse miss on captured text retracts a control.
		m.log.Debug("capture_failed", slog.String("error", err.Error()))
		return false
	}
	if raw == "" {
		return false
	}

	parsed := m.parser.Parse(raw)

	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	if parsed == nil {
		// Menu gone. Retract only when a message is actually bound: a
		// cleared binding with a surviving fingerprint means a selection
		// handler claimed the prompt and is mid-injection.
		if m.state.messageID != 0 {
			m.retract(m.state.chatID, m.state.messageID, StatusResolved)
			m.state.clearLocked()
		}
		return false
	}

	fp := Fingerprint(parsed)
	if fp == m.state.fingerprint {
		// Same prompt, possibly redrawn: track cursor movement so a later
		// selection computes its delta from reality.
		m.state.refreshLocked(parsed.Options, parsed.HighlightedIndex)
		return true
	}

	// New or changed prompt: supersede whatever is bound, then publish.
	if m.state.messageID != 0 {
		m.retract(m.state.chatID, m.state.messageID, StatusSuperseded)
	}
	messageID, err := m.pub.Publish(chatID, parsed)
	if err != nil {
		// Publish failed: bind optimistically anyway. Retrying would risk
		// duplicate controls on a later success; the retract path skips
		// zero message IDs.
		m.log.Warn("publish_failed", slog.String("error", err.Error()))
		messageID = 0
	}
	m.state.bindLocked(fp, chatID, messageID, parsed.Options, parsed.HighlightedIndex)
	m.log.Debug("prompt_published",
		slog.String("question", parsed.Question),
		slog.Int("options", len(parsed.Options)),
		slog.Int("highlighted", parsed.HighlightedIndex))
	return true
}

// teardown retracts a still-bound control when the owning turn ends,
// regardless of fingerprint.
func (m *Monitor) teardown(chatID int64) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if m.state.messageID != 0 {
		m.retract(m.state.chatID, m.state.messageID, StatusCompleted)
	}
	m.state.clearLocked()
	m.log.Debug("monitor_stopped", slog.Int64("chat_id", chatID))
}

// retract logs instead of failing: a lost edit leaves a stale keyboard on
// the chat, which the next publish supersedes.
func (m *Monitor) retract(chatID int64, messageID int, status string) {
	if messageID == 0 {
		return
	}
	if err := m.pub.Retract(chatID, messageID, status); err != nil {
		m.log.Warn("retract_failed",
			slog.Int("message_id", messageID),
			slog.String("error", err.Error()))
	}
}
