// Package tmux wraps the tmux CLI as the terminal gateway: pane capture,
// key and text injection, and Claude Code process lifecycle inside a
// detached session.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/crayonluffy/claudecode-telegram/internal/logging"
)

// ErrCaptureTimeout is returned when capture-pane exceeds its timeout.
// Callers should treat it as transient and keep previous state.
var ErrCaptureTimeout = errors.New("capture-pane timed out")

// claudeCommand launches Claude Code unattended. Interactive permission
// prompts would otherwise wedge the remote session with no one at the
// keyboard to answer them.
const claudeCommand = "claude --dangerously-skip-permissions"

const (
	// captureTTL is how long a captured pane snapshot stays fresh. Matches
	// the monitor poll interval so one subprocess serves each tick even
	// with concurrent readers (screenshot command, websocket mirror).
	captureTTL = 500 * time.Millisecond

	// captureTimeout bounds the capture-pane subprocess.
	captureTimeout = 5 * time.Second

	// pasteThreshold is the message length above which Claude Code's TUI
	// receives the text as a bracketed paste. Enter sent too quickly after
	// a paste gets swallowed by the paste handler, so longer messages get
	// pasteDelay before the confirm.
	pasteThreshold = 200
	pasteDelay     = 500 * time.Millisecond

	// interruptDelay spaces the double Ctrl-C that exits Claude Code.
	interruptDelay = 500 * time.Millisecond

	// startupDelay separates session creation from the first command so
	// the shell inside the new pane is ready to receive it.
	startupDelay = 500 * time.Millisecond
)

type paneCache struct {
	content string
	at      time.Time
}

// Gateway drives tmux for one bridge process. The active session name
// persists in a state file so restarts of the bridge keep controlling the
// same session the user last attached.
//
// Capture results are cached briefly and concurrent captures of the same
// pane are deduplicated, so the poll loop, screenshot commands, and the
// screen mirror share one subprocess per tick.
type Gateway struct {
	// DefaultSession is used when the state file is absent or empty.
	DefaultSession string

	// StateFile persists the active session name.
	StateFile string

	cacheMu   sync.RWMutex
	cache     map[string]paneCache
	captureSf singleflight.Group

	log *slog.Logger
}

// NewGateway returns a gateway controlling defaultSession, with the active
// session name persisted at stateFile.
func NewGateway(defaultSession, stateFile string) *Gateway {
	return &Gateway{
		DefaultSession: defaultSession,
		StateFile:      stateFile,
		cache:          make(map[string]paneCache),
		log:            logging.ForComponent(logging.CompTmux),
	}
}

// Available reports whether the tmux binary runs at all.
func Available() error {
	out, err := exec.Command("tmux", "-V").CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux not found or not working: %w (output: %s)", err, string(out))
	}
	return nil
}

// CurrentSession returns the active session name from the state file,
// falling back to the default when the file is missing or empty.
func (g *Gateway) CurrentSession() string {
	data, err := os.ReadFile(g.StateFile)
	if err != nil {
		return g.DefaultSession
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return g.DefaultSession
	}
	return name
}

// SetCurrentSession persists name as the active session.
func (g *Gateway) SetCurrentSession(name string) error {
	if err := os.MkdirAll(filepath.Dir(g.StateFile), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(g.StateFile, []byte(name), 0o644); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return nil
}

// resolve substitutes the active session for an empty name.
func (g *Gateway) resolve(session string) string {
	if session == "" {
		return g.CurrentSession()
	}
	return session
}

// Exists reports whether a tmux session with the given name is running.
func (g *Gateway) Exists(session string) bool {
	session = g.resolve(session)
	return exec.Command("tmux", "has-session", "-t", session).Run() == nil
}

// ListSessions returns the names of all running tmux sessions. A missing
// tmux server yields an empty list, not an error.
func (g *Gateway) ListSessions() []string {
	out, err := exec.Command("tmux", "list-sessions", "-F", "#{session_name}").Output()
	if err != nil {
		return nil
	}
	return splitSessionList(string(out))
}

func splitSessionList(output string) []string {
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			names = append(names, s)
		}
	}
	return names
}

// Create makes a new detached session and optionally launches Claude Code
// inside it. An already-existing session is not an error. The new session
// becomes the active one.
func (g *Gateway) Create(session, startDir string, startClaude bool) error {
	session = g.resolve(session)
	if g.Exists(session) {
		return nil
	}

	args := []string{"new-session", "-d", "-s", session}
	if startDir != "" {
		args = append(args, "-c", startDir)
	}
	if out, err := exec.Command("tmux", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("create session %q: %w (%s)", session, err, strings.TrimSpace(string(out)))
	}
	if err := g.SetCurrentSession(session); err != nil {
		g.log.Warn("session_state_write_failed", slog.String("error", err.Error()))
	}
	g.log.Info("session_created", slog.String("session", session), slog.String("dir", startDir))

	if startClaude {
		time.Sleep(startupDelay)
		return g.StartClaude(session, "")
	}
	return nil
}

// KillSession terminates a tmux session.
func (g *Gateway) KillSession(session string) error {
	session = g.resolve(session)
	g.invalidate(session)
	if out, err := exec.Command("tmux", "kill-session", "-t", session).CombinedOutput(); err != nil {
		return fmt.Errorf("kill session %q: %w (%s)", session, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CapturePane returns the visible pane content of a session. Snapshots are
// cached for captureTTL and concurrent calls for the same session share one
// subprocess.
func (g *Gateway) CapturePane(session string) (string, error) {
	session = g.resolve(session)

	g.cacheMu.RLock()
	if c, ok := g.cache[session]; ok && time.Since(c.at) < captureTTL {
		g.cacheMu.RUnlock()
		return c.content, nil
	}
	g.cacheMu.RUnlock()

	v, err, _ := g.captureSf.Do(session, func() (interface{}, error) {
		g.cacheMu.RLock()
		if c, ok := g.cache[session]; ok && time.Since(c.at) < captureTTL {
			g.cacheMu.RUnlock()
			return c.content, nil
		}
		g.cacheMu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
		defer cancel()
		out, err := exec.CommandContext(ctx, "tmux", "capture-pane", "-t", session, "-p").Output()
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return "", ErrCaptureTimeout
			}
			return "", fmt.Errorf("capture pane %q: %w", session, err)
		}

		content := string(out)
		g.cacheMu.Lock()
		g.cache[session] = paneCache{content: content, at: time.Now()}
		g.cacheMu.Unlock()
		return content, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// CaptureScrollback returns the last n lines of pane history, uncached.
// -J joins wrapped lines so long output reads naturally.
func (g *Gateway) CaptureScrollback(session string, n int) (string, error) {
	session = g.resolve(session)
	out, err := exec.Command("tmux", "capture-pane", "-t", session, "-p", "-J",
		"-S", fmt.Sprintf("-%d", n)).Output()
	if err != nil {
		return "", fmt.Errorf("capture scrollback %q: %w", session, err)
	}
	return string(out), nil
}

// invalidate drops the cached snapshot after anything that writes to the
// pane, so the next capture reflects the injected input.
func (g *Gateway) invalidate(session string) {
	g.cacheMu.Lock()
	delete(g.cache, session)
	g.cacheMu.Unlock()
}

// SendText sends literal text to the session. The -l flag stops tmux from
// interpreting key names, and -- guards against text starting with a dash.
func (g *Gateway) SendText(session, text string) error {
	session = g.resolve(session)
	g.invalidate(session)
	return exec.Command("tmux", "send-keys", "-l", "-t", session, "--", text).Run()
}

// SendKey sends a named key event (Up, Down, Enter, Escape, C-c).
func (g *Gateway) SendKey(session, name string) error {
	session = g.resolve(session)
	g.invalidate(session)
	return exec.Command("tmux", "send-keys", "-t", session, name).Run()
}

// SendEnter presses Enter in the session.
func (g *Gateway) SendEnter(session string) error {
	return g.SendKey(session, "Enter")
}

// SendEscape presses Escape in the session.
func (g *Gateway) SendEscape(session string) error {
	return g.SendKey(session, "Escape")
}

// SendInterrupt presses Ctrl-C in the session.
func (g *Gateway) SendInterrupt(session string) error {
	return g.SendKey(session, "C-c")
}

// SendMessage types text into the session and confirms it with Enter.
// Messages over the paste threshold get a delay first: tmux delivers long
// literals as a bracketed paste, and an immediate Enter would be consumed
// by the TUI's paste handler instead of submitting.
func (g *Gateway) SendMessage(session, text string) error {
	session = g.resolve(session)
	if err := g.SendText(session, text); err != nil {
		return fmt.Errorf("send message text: %w", err)
	}
	if needsPasteDelay(text) {
		time.Sleep(pasteDelay)
	}
	return g.SendEnter(session)
}

func needsPasteDelay(text string) bool {
	return len(text) > pasteThreshold
}

// CurrentPath returns the working directory of the session's active pane.
func (g *Gateway) CurrentPath(session string) (string, error) {
	session = g.resolve(session)
	out, err := exec.Command("tmux", "display-message", "-t", session, "-p", "#{pane_current_path}").Output()
	if err != nil {
		return "", fmt.Errorf("query pane path %q: %w", session, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// hasShellPrompt reports whether the last non-empty pane line looks like a
// shell prompt, meaning Claude Code has exited back to the shell.
func hasShellPrompt(pane string) bool {
	lines := strings.Split(strings.TrimRight(pane, "\n \t"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		last := strings.TrimRight(lines[i], " \t")
		if strings.TrimSpace(last) == "" {
			continue
		}
		return strings.HasSuffix(last, "$") ||
			strings.HasSuffix(last, "#") ||
			strings.HasSuffix(last, "%")
	}
	return false
}

// WaitForShellPrompt polls the pane until a shell prompt appears or the
// timeout elapses.
func (g *Gateway) WaitForShellPrompt(session string, timeout time.Duration) bool {
	session = g.resolve(session)
	deadline := time.Now().Add(timeout)
	for {
		pane, err := g.CapturePane(session)
		if err == nil && pane != "" && hasShellPrompt(pane) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(300 * time.Millisecond)
	}
}

// StopClaude exits Claude Code and returns the pane to a shell prompt.
// Double Ctrl-C exits from any state, idle or mid-response; /exit is the
// fallback when the TUI ignores the interrupts.
func (g *Gateway) StopClaude(session string) error {
	session = g.resolve(session)

	if g.WaitForShellPrompt(session, interruptDelay) {
		return nil
	}

	if err := g.SendInterrupt(session); err != nil {
		return fmt.Errorf("interrupt: %w", err)
	}
	time.Sleep(interruptDelay)
	if err := g.SendInterrupt(session); err != nil {
		return fmt.Errorf("interrupt: %w", err)
	}
	time.Sleep(interruptDelay)

	if g.WaitForShellPrompt(session, 5*time.Second) {
		return nil
	}

	if err := g.SendText(session, "/exit"); err != nil {
		return fmt.Errorf("send /exit: %w", err)
	}
	if err := g.SendEnter(session); err != nil {
		return fmt.Errorf("send /exit: %w", err)
	}
	time.Sleep(time.Second)
	if g.WaitForShellPrompt(session, 5*time.Second) {
		return nil
	}
	return fmt.Errorf("session %q did not return to a shell prompt", session)
}

// StartClaude launches Claude Code at the shell prompt, optionally after
// changing into dir first.
func (g *Gateway) StartClaude(session, dir string) error {
	session = g.resolve(session)
	cmd := claudeCommand
	if dir != "" {
		cmd = fmt.Sprintf("cd %s && %s", dir, claudeCommand)
	}
	if err := g.SendText(session, cmd); err != nil {
		return fmt.Errorf("start claude: %w", err)
	}
	if err := g.SendEnter(session); err != nil {
		return fmt.Errorf("start claude: %w", err)
	}
	g.log.Info("claude_started", slog.String("session", session), slog.String("dir", dir))
	return nil
}

// StartClaudeResume launches Claude Code resuming a previous conversation.
func (g *Gateway) StartClaudeResume(session, sessionID string) error {
	session = g.resolve(session)
	cmd := fmt.Sprintf("claude --resume %s --dangerously-skip-permissions", sessionID)
	if err := g.SendText(session, cmd); err != nil {
		return fmt.Errorf("resume claude: %w", err)
	}
	if err := g.SendEnter(session); err != nil {
		return fmt.Errorf("resume claude: %w", err)
	}
	g.log.Info("claude_resumed", slog.String("session", session), slog.String("claude_session", sessionID))
	return nil
}

// StartClaudeContinue launches Claude Code continuing the most recent
// conversation in the pane's working directory.
func (g *Gateway) StartClaudeContinue(session string) error {
	session = g.resolve(session)
	if err := g.SendText(session, "claude --continue --dangerously-skip-permissions"); err != nil {
		return fmt.Errorf("continue claude: %w", err)
	}
	if err := g.SendEnter(session); err != nil {
		return fmt.Errorf("continue claude: %w", err)
	}
	g.log.Info("claude_continued", slog.String("session", session))
	return nil
}

// RestartClaude stops any running Claude Code instance and starts a fresh
// one, preserving the pane's working directory unless startDir overrides
// it. Returns the directory the new instance starts in. A missing tmux
// session is created instead.
func (g *Gateway) RestartClaude(session, startDir string) (string, error) {
	session = g.resolve(session)

	if !g.Exists(session) {
		if err := g.Create(session, startDir, true); err != nil {
			return "", err
		}
		return startDir, nil
	}

	if startDir == "" {
		if path, err := g.CurrentPath(session); err == nil {
			startDir = path
		}
	}

	if err := g.StopClaude(session); err != nil {
		return "", fmt.Errorf("stop previous instance: %w", err)
	}
	if err := g.StartClaude(session, startDir); err != nil {
		return "", err
	}
	return startDir, nil
}
