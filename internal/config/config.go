// Package config loads bridge configuration from an optional TOML file with
// environment variable overrides on top, so a bare `TELEGRAM_BOT_TOKEN=...`
// start works without any file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full bridge configuration.
type Config struct {
	// Telegram holds bot credentials and webhook settings.
	Telegram TelegramConfig `toml:"telegram"`

	// Server holds the HTTP listener settings.
	Server ServerConfig `toml:"server"`

	// Tmux holds terminal session settings.
	Tmux TmuxConfig `toml:"tmux"`

	// Paths holds state file and directory locations. All support ~.
	Paths PathsConfig `toml:"paths"`

	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

type TelegramConfig struct {
	// BotToken authenticates against the Bot API. Env: TELEGRAM_BOT_TOKEN.
	BotToken string `toml:"bot_token"`
}

type ServerConfig struct {
	// Port the webhook listener binds. Env: PORT.
	Port int `toml:"port"`

	// ScreenToken, when set, is required as ?token= on the screen mirror
	// websocket. Env: SCREEN_TOKEN.
	ScreenToken string `toml:"screen_token"`
}

type TmuxConfig struct {
	// Session is the default tmux session name. Env: TMUX_SESSION.
	Session string `toml:"session"`
}

type PathsConfig struct {
	// ProjectsBase is where /start resolves project names. Env: PROJECTS_BASE.
	ProjectsBase string `toml:"projects_base"`

	// UploadDir receives downloaded photos. Env: UPLOAD_DIR.
	UploadDir string `toml:"upload_dir"`

	// StateDir holds the marker file, settings, session state, and the
	// history database.
	StateDir string `toml:"state_dir"`

	// ClaudeProjectsDir is Claude Code's transcript root, used to resolve
	// session IDs for resume.
	ClaudeProjectsDir string `toml:"claude_projects_dir"`
}

type LogConfig struct {
	// Dir for rotating log files. Empty logs to the state dir.
	Dir string `toml:"dir"`

	// Level: debug, info, warn, error.
	Level string `toml:"level"`

	// Format: json or text.
	Format string `toml:"format"`
}

// Default returns the configuration used when no file and no env overrides
// are present.
func Default() Config {
	return Config{
		Telegram: TelegramConfig{},
		Server:   ServerConfig{Port: 8080},
		Tmux:     TmuxConfig{Session: "claude"},
		Paths: PathsConfig{
			ProjectsBase:      "~/claude",
			UploadDir:         "~/uploads",
			StateDir:          "~/.claude",
			ClaudeProjectsDir: "~/.claude/projects",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the TOML file at path if it exists, then applies environment
// overrides and expands ~ in all paths. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("resolve home dir: %w", err)
	}
	cfg.expandPaths(home)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCREEN_TOKEN"); v != "" {
		cfg.Server.ScreenToken = v
	}
	if v := os.Getenv("TMUX_SESSION"); v != "" {
		cfg.Tmux.Session = v
	}
	if v := os.Getenv("PROJECTS_BASE"); v != "" {
		cfg.Paths.ProjectsBase = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Paths.UploadDir = v
	}
}

func (c *Config) expandPaths(home string) {
	c.Paths.ProjectsBase = expandHome(c.Paths.ProjectsBase, home)
	c.Paths.UploadDir = expandHome(c.Paths.UploadDir, home)
	c.Paths.StateDir = expandHome(c.Paths.StateDir, home)
	c.Paths.ClaudeProjectsDir = expandHome(c.Paths.ClaudeProjectsDir, home)
	c.Log.Dir = expandHome(c.Log.Dir, home)
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate reports configuration the bridge cannot start with.
func (c Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token not set (TELEGRAM_BOT_TOKEN or [telegram] bot_token)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Tmux.Session == "" {
		return fmt.Errorf("tmux session name is empty")
	}
	return nil
}

// Derived state file locations under StateDir. The names match what the
// Claude Code Stop hook expects to find.

func (c Config) TurnMarkerPath() string {
	return filepath.Join(c.Paths.StateDir, "telegram_pending")
}

func (c Config) SettingsPath() string {
	return filepath.Join(c.Paths.StateDir, "telegram_settings.json")
}

func (c Config) SessionStatePath() string {
	return filepath.Join(c.Paths.StateDir, "telegram_tmux_session")
}

func (c Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "telegram_bridge.db")
}

func (c Config) LogDir() string {
	if c.Log.Dir != "" {
		return c.Log.Dir
	}
	return filepath.Join(c.Paths.StateDir, "logs")
}
