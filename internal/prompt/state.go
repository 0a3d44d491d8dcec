package prompt

import "sync"

// State is the process-wide record of the currently published remote
// control for one monitored tmux session. A single mutex covers every
// field: they change together, and the claim protocol below depends on
// reading and mutating them as one atomic unit.
//
// Writers: the monitor loop during normal polling, and remote-event
// handlers when claiming a prompt for selection. Both serialize through mu.
type State struct {
	mu          sync.Mutex
	fingerprint string
	chatID      int64
	messageID   int
	options     []Option
	highlighted int
}

// NewState returns an empty prompt state.
func NewState() *State {
	return &State{}
}

// Selection is a claimed snapshot of the published control, taken under the
// lock so the handler can act on it outside the lock.
type Selection struct {
	ChatID      int64
	MessageID   int
	Options     []Option
	Highlighted int
}

// Claim atomically snapshots the current control and clears the message
// binding while deliberately retaining the fingerprint. A concurrent monitor
// tick then sees "same fingerprint, nothing bound" and neither retracts the
// message being handled nor re-publishes a duplicate control. Returns false
// when no option list is bound.
func (s *State) Claim() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.options) == 0 {
		return Selection{}, false
	}
	sel := Selection{
		ChatID:      s.chatID,
		MessageID:   s.messageID,
		Options:     append([]Option(nil), s.options...),
		Highlighted: s.highlighted,
	}
	s.messageID = 0
	s.options = nil
	return sel, true
}

// Snapshot returns a copy of the bound option list and highlighted index
// without claiming. Used by commands that only inspect state (/pick bounds
// checking happens before the claim).
func (s *State) Snapshot() ([]Option, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Option(nil), s.options...), s.highlighted
}

// TakeBinding fully clears the state and returns the previous message
// binding so the caller can retract it. Used on turn interruption.
func (s *State) TakeBinding() (chatID int64, messageID int, bound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chatID, messageID, bound = s.chatID, s.messageID, s.messageID != 0
	s.clearLocked()
	return chatID, messageID, bound
}

// Bound reports whether a control message is currently published.
func (s *State) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageID != 0
}

// Fingerprint returns the fingerprint of the last published prompt, which
// stays set through an in-flight claim.
func (s *State) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprint
}

// clearLocked resets every field. Callers hold mu.
func (s *State) clearLocked() {
	s.fingerprint = ""
	s.chatID = 0
	s.messageID = 0
	s.options = nil
	s.highlighted = 0
}

// bindLocked records a freshly published control. Callers hold mu.
func (s *State) bindLocked(fp string, chatID int64, messageID int, opts []Option, highlighted int) {
	s.fingerprint = fp
	s.chatID = chatID
	s.messageID = messageID
	s.options = append([]Option(nil), opts...)
	s.highlighted = highlighted
}

// refreshLocked updates the option list and highlighted index in place for
// a cosmetic redraw of the same prompt. Callers hold mu.
func (s *State) refreshLocked(opts []Option, highlighted int) {
	s.options = append([]Option(nil), opts...)
	s.highlighted = highlighted
}
