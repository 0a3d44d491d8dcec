package history

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SessionID resolves the Claude Code session ID for a project directory by
// finding the newest transcript under claudeProjectsDir. Claude Code stores
// transcripts in a directory named after the project path with slashes
// replaced by dashes, one <session-id>.jsonl per session.
func SessionID(claudeProjectsDir, projectPath string) (string, bool) {
	encoded := strings.TrimPrefix(strings.ReplaceAll(projectPath, "/", "-"), "-")
	for _, name := range []string{"-" + encoded, encoded} {
		dir := filepath.Join(claudeProjectsDir, name)
		if id, ok := newestTranscript(dir); ok {
			return id, true
		}
	}
	return "", false
}

func newestTranscript(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var newest string
	var newestAt time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest = e.Name()
			newestAt = info.ModTime()
		}
	}
	if newest == "" {
		return "", false
	}
	return strings.TrimSuffix(newest, ".jsonl"), true
}
