package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Tmux.Session != "claude" {
		t.Errorf("session = %q, want claude", cfg.Tmux.Session)
	}
	home, _ := os.UserHomeDir()
	if cfg.Paths.StateDir != filepath.Join(home, ".claude") {
		t.Errorf("state dir = %q, want expanded ~/.claude", cfg.Paths.StateDir)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	content := `
[telegram]
bot_token = "123:abc"

[server]
port = 9090

[tmux]
session = "work"

[paths]
projects_base = "/srv/projects"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.BotToken)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Tmux.Session != "work" {
		t.Errorf("session = %q", cfg.Tmux.Session)
	}
	if cfg.Paths.ProjectsBase != "/srv/projects" {
		t.Errorf("projects base = %q", cfg.Paths.ProjectsBase)
	}
	// Unset sections keep defaults.
	if cfg.Paths.UploadDir == "" {
		t.Error("upload dir default lost")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env:token")
	t.Setenv("TMUX_SESSION", "envsession")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d, env must override file", cfg.Server.Port)
	}
	if cfg.Telegram.BotToken != "env:token" {
		t.Errorf("token = %q", cfg.Telegram.BotToken)
	}
	if cfg.Tmux.Session != "envsession" {
		t.Errorf("session = %q", cfg.Tmux.Session)
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	if err := os.WriteFile(path, []byte("[telegram\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bot token") {
		t.Errorf("Validate without token = %v", err)
	}
	cfg.Telegram.BotToken = "123:abc"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate must reject port 0")
	}
}

func TestExpandHome(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"~/x", "/home/u/x"},
		{"~", "/home/u"},
		{"/abs/path", "/abs/path"},
		{"", ""},
		{"~user/x", "~user/x"},
	}
	for _, c := range cases {
		if got := expandHome(c.in, "/home/u"); got != c.want {
			t.Errorf("expandHome(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.StateDir = "/state"
	if got := cfg.TurnMarkerPath(); got != "/state/telegram_pending" {
		t.Errorf("TurnMarkerPath = %q", got)
	}
	if got := cfg.SettingsPath(); got != "/state/telegram_settings.json" {
		t.Errorf("SettingsPath = %q", got)
	}
	if got := cfg.SessionStatePath(); got != "/state/telegram_tmux_session" {
		t.Errorf("SessionStatePath = %q", got)
	}
	if got := cfg.LogDir(); got != "/state/logs" {
		t.Errorf("LogDir = %q", got)
	}
	cfg.Log.Dir = "/var/log/bridge"
	if got := cfg.LogDir(); got != "/var/log/bridge" {
		t.Errorf("LogDir with override = %q", got)
	}
}
