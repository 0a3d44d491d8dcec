package prompt

import "time"

// KeySender injects named key events into the terminal session.
type KeySender interface {
	SendKey(name string) error
}

// Key names understood by the tmux gateway.
const (
	KeyUp     = "Up"
	KeyDown   = "Down"
	KeyEnter  = "Enter"
	KeyEscape = "Escape"
)

// Selector translates a chosen option index into the relative arrow-key
// sequence the TUI expects. Correctness depends on currentIndex reflecting
// the host cursor position at call time, so callers claim and reconcile
// state immediately before selecting.
type Selector struct {
	keys KeySender

	// StepDelay spaces successive arrow presses so the TUI's input
	// polling doesn't drop them.
	StepDelay time.Duration

	// SettleDelay separates the last arrow press from the confirm.
	SettleDelay time.Duration
}

// NewSelector returns a selector with the tuned default delays.
func NewSelector(keys KeySender) *Selector {
	return &Selector{
		keys:        keys,
		StepDelay:   50 * time.Millisecond,
		SettleDelay: 100 * time.Millisecond,
	}
}

// Select moves the cursor from currentIndex to targetIndex and confirms.
// A zero delta issues only the confirm.
func (s *Selector) Select(targetIndex, currentIndex int) error {
	if err := s.Navigate(targetIndex, currentIndex); err != nil {
		return err
	}
	time.Sleep(s.SettleDelay)
	return s.keys.SendKey(KeyEnter)
}

// Navigate moves the cursor without confirming. Used for free-text entry:
// arrowing onto the placeholder option switches the TUI into text input
// mode, and pressing Enter there would submit an empty answer.
func (s *Selector) Navigate(targetIndex, currentIndex int) error {
	delta := targetIndex - currentIndex
	key := KeyDown
	if delta < 0 {
		key = KeyUp
		delta = -delta
	}
	for i := 0; i < delta; i++ {
		if err := s.keys.SendKey(key); err != nil {
			return err
		}
		time.Sleep(s.StepDelay)
	}
	return nil
}
