package telegram

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/crayonluffy/claudecode-telegram/internal/history"
	"github.com/crayonluffy/claudecode-telegram/internal/projects"
	"github.com/crayonluffy/claudecode-telegram/internal/screen"
	"github.com/crayonluffy/claudecode-telegram/internal/settings"
)

// screenshotLimit is the largest pane excerpt a single chat message
// carries; longer captures keep the tail.
const screenshotLimit = 3500

// recentSessionLimit bounds the /resume picker.
const recentSessionLimit = 10

// blockedCommands are Claude Code slash commands that need an interactive
// terminal and would wedge the remote session.
var blockedCommands = map[string]bool{
	"/mcp": true, "/settings": true, "/config": true, "/model": true,
	"/compact": true, "/cost": true, "/doctor": true, "/init": true,
	"/login": true, "/logout": true, "/memory": true, "/permissions": true,
	"/pr": true, "/review": true, "/terminal": true, "/vim": true,
	"/approved-tools": true, "/listen": true,
}

const helpText = `Commands:
  /stop - Interrupt Claude (Escape)
  /screenshot - Capture tmux screen
  /status - Project, branch, cwd, state
  /start [name] [dir] - Create tmux + Claude
  /restart - Restart Claude
  /new [dir] - Fresh Claude session
  /resume - Pick from recent sessions
  /continue_ - Continue last session
  /scroll [n] - Last n lines of output

More:
  /projects /sessions /attach /kill /clear
  /usage /commit /undo /diff /pwd /loop
  /pick N /y /n /ok /retry
  /verbose /coauthor /signature

Just type normally to chat with Claude.
Interactive prompts appear as buttons automatically.`

// BotCommands is the menu published to the Telegram client.
var BotCommands = []tgbotapi.BotCommand{
	{Command: "stop", Description: "Interrupt Claude (Escape)"},
	{Command: "screenshot", Description: "Capture tmux screen"},
	{Command: "status", Description: "Show session status"},
	{Command: "projects", Description: "List available projects"},
	{Command: "sessions", Description: "List all tmux sessions"},
	{Command: "attach", Description: "Switch to tmux session"},
	{Command: "start", Description: "Create tmux + start Claude"},
	{Command: "restart", Description: "Restart Claude Code"},
	{Command: "new", Description: "Start new Claude session"},
	{Command: "resume", Description: "Resume session (picker)"},
	{Command: "continue_", Description: "Continue last session"},
	{Command: "scroll", Description: "Show last N lines"},
	{Command: "usage", Description: "Show plan usage limits"},
	{Command: "help", Description: "Show all commands"},
}

// handleCommand dispatches a slash command. Returns false when the text is
// not a recognized command, in which case it is forwarded to Claude like a
// regular message (Claude Code has slash commands of its own).
func (b *Bridge) handleCommand(ctx context.Context, chatID int64, text string) bool {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "/help":
		b.client.Reply(chatID, helpText)

	case "/status":
		b.cmdStatus(chatID)

	case "/projects":
		b.cmdProjects(chatID)

	case "/sessions":
		b.cmdSessions(chatID)

	case "/attach":
		if len(parts) < 2 {
			b.client.Reply(chatID, "Usage: /attach <session_name>\n\n💡 Use /sessions to list available")
			return true
		}
		b.cmdAttach(chatID, parts[1])

	case "/y":
		b.quickSend(chatID, "yes")
	case "/n":
		b.quickSend(chatID, "no")
	case "/ok":
		b.quickSend(chatID, "ok, continue")
	case "/retry":
		b.quickSend(chatID, "try again")
	case "/commit":
		b.quickSend(chatID, "/commit")
	case "/undo":
		b.quickSend(chatID, "/undo")
	case "/diff":
		b.quickSend(chatID, "show me the git diff")

	case "/pwd":
		if !b.sessionUp(chatID) {
			return true
		}
		dir, err := b.gw.CurrentPath("")
		if err != nil || dir == "" {
			dir = "unknown"
		}
		b.client.Reply(chatID, fmt.Sprintf("📂 %s", dir))

	case "/project":
		b.cmdProject(chatID)

	case "/new":
		b.cmdNew(chatID, parts)

	case "/kill":
		session := b.gw.CurrentSession()
		_ = b.gw.KillSession(session)
		b.client.Reply(chatID, fmt.Sprintf("Killed tmux session '%s'", session))

	case "/start":
		b.cmdStart(chatID, parts)

	case "/restart":
		startDir := ""
		if len(parts) > 1 {
			startDir = parts[1]
		}
		b.cmdRestart(chatID, startDir)

	case "/screenshot":
		if !b.sessionUp(chatID) {
			return true
		}
		b.sendScreenshot(chatID, 0)

	case "/scroll":
		if !b.sessionUp(chatID) {
			return true
		}
		lines := 50
		if len(parts) > 1 {
			if n, err := strconv.Atoi(parts[1]); err == nil {
				lines = n
			}
		}
		if lines > 200 {
			lines = 200
		}
		b.sendScreenshot(chatID, lines)

	case "/usage":
		b.cmdUsage(chatID)

	case "/stop":
		b.interrupt(chatID)

	case "/pick":
		b.cmdPick(chatID, parts)

	case "/clear":
		if !b.sessionUp(chatID) {
			return true
		}
		_ = b.gw.SendEscape("")
		time.Sleep(200 * time.Millisecond)
		if err := b.gw.SendText("", "/clear"); err == nil {
			_ = b.gw.SendEnter("")
		}
		b.client.Reply(chatID, "Cleared")

	case "/continue_":
		b.cmdContinue(chatID)

	case "/loop":
		b.cmdLoop(ctx, chatID, text)

	case "/resume":
		b.cmdResume(chatID)

	case "/verbose", "/coauthor", "/signature":
		b.cmdToggle(chatID, cmd[1:], parts)

	default:
		if blockedCommands[cmd] {
			b.client.Reply(chatID, fmt.Sprintf("'%s' not supported (interactive)", cmd))
			return true
		}
		return false
	}
	return true
}

// sessionUp replies with a hint and returns false when the active tmux
// session does not exist.
func (b *Bridge) sessionUp(chatID int64) bool {
	if b.gw.Exists("") {
		return true
	}
	b.client.Reply(chatID, "tmux not found")
	return false
}

// quickSend types a canned response into the pane and confirms it.
func (b *Bridge) quickSend(chatID int64, text string) {
	if !b.gw.Exists("") {
		return
	}
	if err := b.gw.SendText("", text); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to send: %v", err))
		return
	}
	_ = b.gw.SendEnter("")
	b.client.Reply(chatID, fmt.Sprintf("Sent: %s", text))
}

func (b *Bridge) cmdStatus(chatID int64) {
	session := b.gw.CurrentSession()
	if !b.gw.Exists(session) {
		b.client.Reply(chatID, fmt.Sprintf("❌ tmux '%s' not found\n\n💡 Use /start to create or /sessions to list available", session))
		return
	}
	dir, err := b.gw.CurrentPath(session)
	if err != nil || dir == "" {
		dir = "unknown"
	}
	branch := gitBranch(dir)

	sid := "unknown"
	if id, ok := b.currentSessionID(); ok {
		sid = shortID(id) + "..."
	}

	pane, _ := b.Capture()
	pane = strings.TrimSpace(pane)
	claudeRunning := strings.Contains(strings.ToLower(pane), "claude") ||
		strings.Contains(pane, ">") || strings.Contains(pane, "╭")
	shellPrompt := strings.HasSuffix(pane, "$") || strings.HasSuffix(pane, "#") || strings.HasSuffix(pane, "%")

	var state string
	switch {
	case b.latch.Pending():
		state = "⏳ Working..."
	case shellPrompt && !claudeRunning:
		state = "🔴 Shell only (Claude not running)\n💡 Use /restart to start Claude"
	default:
		state = "✅ Ready"
	}

	b.client.Reply(chatID, strings.Join([]string{
		fmt.Sprintf("🖥️ tmux: %s", session),
		fmt.Sprintf("📍 %s", dir),
		fmt.Sprintf("🔀 Branch: %s", branch),
		fmt.Sprintf("📋 Claude: %s", sid),
		fmt.Sprintf("⏱️ %s", state),
	}, "\n"))
}

func (b *Bridge) cmdProjects(chatID int64) {
	base := b.cfg.Paths.ProjectsBase
	names, err := projects.List(base)
	if err != nil {
		b.client.Reply(chatID, fmt.Sprintf("❌ Projects base not found: %s", base))
		return
	}
	if len(names) == 0 {
		b.client.Reply(chatID, fmt.Sprintf("No projects found in %s", base))
		return
	}
	live := make(map[string]bool)
	for _, s := range b.gw.ListSessions() {
		live[s] = true
	}
	lines := []string{fmt.Sprintf("📂 Projects in `%s`:\n", base)}
	for _, name := range names {
		marker := ""
		if live[name] {
			marker = " ✅"
		}
		lines = append(lines, fmt.Sprintf("  • %s%s", name, marker))
	}
	lines = append(lines, "\n💡 /start <name> to create a session")
	b.client.Reply(chatID, strings.Join(lines, "\n"))
}

func (b *Bridge) cmdSessions(chatID int64) {
	sessions := b.gw.ListSessions()
	if len(sessions) == 0 {
		b.client.Reply(chatID, "No tmux sessions found.\n\n💡 Use /start <name> to create one")
		return
	}
	current := b.gw.CurrentSession()
	kb := sessionsKeyboard(sessions, current)
	text := fmt.Sprintf("📺 Sessions (%d) — current: %s", len(sessions), current)
	if _, err := b.client.SendWithKeyboard(chatID, text, kb); err != nil {
		b.client.Reply(chatID, text)
	}
}

// sessionsKeyboard builds one attach button per session, marking the
// current one, plus a dismiss row.
func sessionsKeyboard(sessions []string, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range sessions {
		label := s
		if s == current {
			label = "▶ " + s
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "attach:"+s)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✕ Dismiss", "dismiss_msg")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bridge) cmdAttach(chatID int64, name string) {
	if !b.gw.Exists(name) {
		b.client.Reply(chatID, fmt.Sprintf("❌ Session '%s' not found\n\n💡 Use /sessions to list available or /start %s to create", name, name))
		return
	}
	if err := b.gw.SetCurrentSession(name); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to switch session: %v", err))
		return
	}
	b.client.Reply(chatID, fmt.Sprintf("✅ Switched to tmux session: %s", name))
}

func (b *Bridge) cmdProject(chatID int64) {
	if !b.sessionUp(chatID) {
		return
	}
	dir, err := b.gw.CurrentPath("")
	if err != nil || dir == "" {
		dir = "unknown"
	}
	sid := "unknown"
	if id, ok := b.currentSessionID(); ok {
		sid = shortID(id)
	}
	b.client.Reply(chatID, fmt.Sprintf("🖥️ tmux: %s\n📂 %s\n📋 Claude: %s...", b.gw.CurrentSession(), dir, sid))
}

func (b *Bridge) cmdNew(chatID int64, parts []string) {
	if !b.gw.Exists("") {
		b.client.Reply(chatID, "tmux not found. Use /start to create a session first.")
		return
	}
	if err := b.gw.StopClaude(""); err != nil {
		b.client.Reply(chatID, "Failed to stop Claude")
		return
	}
	dir := ""
	if len(parts) > 1 {
		dir = parts[1]
	}
	if err := b.gw.StartClaude("", dir); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to start Claude: %v", err))
		return
	}
	b.client.Reply(chatID, "New Claude session started")
}

// parseStartArgs interprets /start's optional arguments: a first argument
// looking like a path becomes the directory, otherwise it names the
// session and an optional second argument the directory.
func parseStartArgs(parts []string) (session, dir string) {
	if len(parts) >= 2 {
		arg := parts[1]
		if strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "~") || strings.HasPrefix(arg, ".") {
			dir = arg
		} else {
			session = arg
			if len(parts) >= 3 {
				dir = parts[2]
			}
		}
	}
	return session, dir
}

func (b *Bridge) cmdStart(chatID int64, parts []string) {
	session, dir := parseStartArgs(parts)
	if session == "" {
		session = b.gw.CurrentSession()
	}

	// No directory given: match the session name against the projects
	// base, falling back to the base itself.
	if dir == "" {
		if resolved, ok := projects.Resolve(b.cfg.Paths.ProjectsBase, session); ok {
			dir = resolved
		} else if info, err := os.Stat(b.cfg.Paths.ProjectsBase); err == nil && info.IsDir() {
			dir = b.cfg.Paths.ProjectsBase
		}
	}

	if b.gw.Exists(session) {
		b.client.Reply(chatID, fmt.Sprintf("⚠️ tmux '%s' already exists.\n\n💡 Use /attach %s to switch or /restart to restart Claude", session, session))
		return
	}
	if err := b.gw.Create(session, dir, true); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("❌ %v", err))
		return
	}
	dirInfo := ""
	if dir != "" {
		dirInfo = fmt.Sprintf(" in `%s`", dir)
	}
	b.client.Reply(chatID, fmt.Sprintf("✅ Created tmux session '%s'%s and started Claude Code", session, dirInfo))
}

func (b *Bridge) cmdRestart(chatID int64, startDir string) {
	// Resolve the transcript ID of the session being replaced before the
	// restart tears it down, so it can be offered for resume.
	prevSID := ""
	if dir, err := b.gw.CurrentPath(""); err == nil && dir != "" {
		if sid, ok := history.SessionID(b.cfg.Paths.ClaudeProjectsDir, dir); ok {
			prevSID = sid
		}
	}

	if _, err := b.gw.RestartClaude("", startDir); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("❌ %v", err))
		return
	}

	if prevSID == "" {
		b.client.Reply(chatID, "✅ Claude Code restarted")
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Resume previous session", "resume:"+prevSID)))
	text := fmt.Sprintf("✅ Claude Code restarted\n\nPrevious session: %s...", shortID(prevSID))
	if _, err := b.client.SendWithKeyboard(chatID, text, kb); err != nil {
		b.client.Reply(chatID, text)
	}
}

// sendScreenshot replies with the pane content (lines == 0) or the last
// lines of scrollback, fenced as a code block.
func (b *Bridge) sendScreenshot(chatID int64, lines int) {
	var raw string
	var err error
	if lines > 0 {
		raw, err = b.gw.CaptureScrollback("", lines)
	} else {
		raw, err = b.gw.CapturePane("")
	}
	if err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Capture failed: %v", err))
		return
	}
	content := strings.TrimSpace(screen.StripANSI(raw))
	if content == "" {
		b.client.Reply(chatID, "(empty screen)")
		return
	}
	content = tailBytes(content, screenshotLimit)
	b.client.Reply(chatID, fmt.Sprintf("```\n%s\n```", content))
}

// tailBytes keeps the last limit bytes of s, marking the cut.
func tailBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return "...\n" + s[len(s)-limit:]
}

func (b *Bridge) cmdUsage(chatID int64) {
	if !b.gw.Exists("") {
		return
	}
	if err := b.gw.SendText("", "/usage"); err != nil {
		b.client.Reply(chatID, "Could not capture usage output")
		return
	}
	_ = b.gw.SendEnter("")
	time.Sleep(1500 * time.Millisecond)
	raw, _ := b.gw.CapturePane("")
	_ = b.gw.SendEscape("")

	block, ok := extractUsageBlock(screen.StripANSI(raw))
	if !ok {
		b.client.Reply(chatID, "Could not capture usage output")
		return
	}
	b.client.Reply(chatID, block)
}

// extractUsageBlock pulls the last "Current session" block out of a usage
// panel capture, stopping at the panel's footer hints. The last occurrence
// wins since earlier captures may linger in scrollback.
func extractUsageBlock(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	start := -1
	for i, l := range lines {
		if strings.Contains(l, "Current session") {
			start = i
		}
	}
	if start < 0 {
		return "", false
	}
	var out []string
	for _, l := range lines[start:] {
		s := strings.TrimSpace(l)
		if strings.Contains(s, "Esc to cancel") || strings.Contains(s, "to cycle") {
			break
		}
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, "\n"), true
}

func (b *Bridge) cmdPick(chatID int64, parts []string) {
	if len(parts) < 2 {
		b.client.Reply(chatID, "Usage: /pick <number>\n\nSelects option N from the current interactive prompt.\nUse /screenshot to see available options.")
		return
	}
	if !b.sessionUp(chatID) {
		return
	}
	arg := strings.ToLower(parts[1])
	if arg == "dismiss" || arg == "esc" || arg == "escape" {
		_ = b.gw.SendEscape("")
		b.client.Reply(chatID, "Sent Escape")
		return
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		b.client.Reply(chatID, "Usage: /pick <number> (0-based index)")
		return
	}

	opts, _ := b.state.Snapshot()
	if len(opts) == 0 {
		// No tracked prompt. Fire blind from the first option as a manual
		// escape hatch.
		if idx < 0 {
			b.client.Reply(chatID, "Usage: /pick <number> (0-based index)")
			return
		}
		if err := b.selector.Select(idx, 0); err != nil {
			b.client.Reply(chatID, fmt.Sprintf("Failed to send selection: %v", err))
			return
		}
		b.client.Reply(chatID, fmt.Sprintf("Sent %d Down arrow(s) + Enter (no active prompt tracked)", idx))
		return
	}
	if idx < 0 || idx >= len(opts) {
		b.client.Reply(chatID, fmt.Sprintf("Index out of range. Valid: 0-%d", len(opts)-1))
		return
	}

	sel, ok := b.state.Claim()
	if !ok {
		b.client.Reply(chatID, "Prompt may have changed. Use /screenshot to check.")
		return
	}
	if idx >= len(sel.Options) {
		b.client.Reply(chatID, fmt.Sprintf("Prompt may have changed (options=%d, target=%d). Use /screenshot to check.", len(sel.Options), idx))
		return
	}
	if err := b.selector.Select(idx, sel.Highlighted); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to send selection: %v", err))
		return
	}
	b.retractClaimed(sel, fmt.Sprintf("Selected: %s", sel.Options[idx].Label))
	b.client.Reply(chatID, fmt.Sprintf("Selected option %d: %s", idx, sel.Options[idx].Label))
}

func (b *Bridge) cmdContinue(chatID int64) {
	if !b.sessionUp(chatID) {
		return
	}
	if err := b.gw.StopClaude(""); err != nil {
		b.client.Reply(chatID, "Failed to stop Claude")
		return
	}
	if err := b.gw.StartClaudeContinue(""); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to continue: %v", err))
		return
	}
	b.client.Reply(chatID, "Continuing...")
}

// cmdLoop kicks off an unattended fix-verify loop that repeats the task
// until the model outputs the completion promise or hits the iteration cap.
func (b *Bridge) cmdLoop(ctx context.Context, chatID int64, text string) {
	if !b.sessionUp(chatID) {
		return
	}
	_, task, found := strings.Cut(text, " ")
	task = strings.TrimSpace(task)
	if !found || task == "" {
		b.client.Reply(chatID, "Usage: /loop <prompt>")
		return
	}
	task = strings.ReplaceAll(task, `"`, `\"`)
	full := fmt.Sprintf("%s Output <promise>DONE</promise> when complete.", task)

	if err := b.latch.Begin(); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to start: %v", err))
		return
	}
	b.lastChatID.Store(chatID)
	b.rememberChat(chatID)
	go KeepTyping(ctx, b.client, chatID, b.latch)
	go b.newMonitor().Run(ctx, chatID)

	cmd := fmt.Sprintf(`/ralph-loop:ralph-loop "%s" --max-iterations 5 --completion-promise "DONE"`, full)
	if err := b.gw.SendText("", cmd); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to send: %v", err))
		_ = b.latch.End()
		return
	}
	time.Sleep(300 * time.Millisecond)
	_ = b.gw.SendEnter("")
	b.client.Reply(chatID, "Ralph Loop started (max 5 iterations)")
}

func (b *Bridge) cmdResume(chatID int64) {
	turns, err := b.hist.RecentTurns(recentSessionLimit)
	if err != nil || len(turns) == 0 {
		b.client.Reply(chatID, "No sessions")
		return
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Continue most recent", "continue_recent")),
	}
	for _, t := range turns {
		sid, ok := history.SessionID(b.cfg.Paths.ClaudeProjectsDir, t.Project)
		if !ok {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(resumeLabel(t.Display), "resume:"+sid)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.client.SendWithKeyboard(chatID, "Select session:", kb); err != nil {
		b.client.Reply(chatID, "No sessions")
	}
}

// resumeLabel shortens a turn's first message for a button.
func resumeLabel(display string) string {
	r := []rune(display)
	if len(r) > 40 {
		r = r[:40]
	}
	return string(r) + "..."
}

func (b *Bridge) cmdToggle(chatID int64, name string, parts []string) {
	prefs := b.prefs.Load()
	if len(parts) < 2 {
		b.client.Reply(chatID, fmt.Sprintf("%s: %s", name, onOff(prefs.Get(name))))
		return
	}
	val := settings.ParseToggle(parts[1])
	prefs.Set(name, val)
	if err := b.prefs.Save(prefs); err != nil {
		b.client.Reply(chatID, fmt.Sprintf("Failed to save settings: %v", err))
		return
	}
	b.client.Reply(chatID, fmt.Sprintf("%s: %s", name, onOff(val)))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// currentSessionID resolves the transcript session ID for the most recent
// turn's project.
func (b *Bridge) currentSessionID() (string, bool) {
	turns, err := b.hist.RecentTurns(1)
	if err != nil || len(turns) == 0 {
		return "", false
	}
	return history.SessionID(b.cfg.Paths.ClaudeProjectsDir, turns[0].Project)
}

// shortID abbreviates a UUID-ish session ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// gitBranch returns the checked-out branch of dir, or "n/a".
func gitBranch(dir string) string {
	out, err := exec.Command("git", "-C", dir, "branch", "--show-current").Output()
	if err != nil {
		return "n/a"
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" {
		return "n/a"
	}
	return branch
}
