// Package turn tracks whether a conversational turn is in flight via a
// marker file. The bridge raises the marker when it forwards a message to
// Claude Code; the Stop hook configured in Claude Code removes it when the
// response finishes. The file, not process memory, is the source of truth,
// so a bridge restart mid-turn picks the turn back up.
package turn

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Latch is the on-disk pending-turn marker.
type Latch struct {
	// Path of the marker file.
	Path string
}

// NewLatch returns a latch over the marker file at path.
func NewLatch(path string) *Latch {
	return &Latch{Path: path}
}

// Begin raises the marker, recording the turn start time.
func (l *Latch) Begin() error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	content := strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(l.Path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write turn marker: %w", err)
	}
	return nil
}

// End lowers the marker. Already-lowered is not an error: the Stop hook
// and an explicit /stop race for the same file.
func (l *Latch) End() error {
	err := os.Remove(l.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove turn marker: %w", err)
	}
	return nil
}

// Pending reports whether a turn is in flight.
func (l *Latch) Pending() bool {
	_, err := os.Stat(l.Path)
	return err == nil
}

// Since returns when the pending turn started. ok is false when no turn is
// pending or the marker is unreadable.
func (l *Latch) Since() (time.Time, bool) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
