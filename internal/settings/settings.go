// Package settings persists per-user bridge preferences as a small JSON
// file. The format stays map-like on disk so fields added later read back
// with their defaults from older files.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Settings are the toggleable bridge preferences.
type Settings struct {
	// Verbose includes a screen capture with turn-completion notices.
	Verbose bool `json:"verbose"`
	// Coauthor allows Co-Authored-By trailers in commits Claude makes.
	Coauthor bool `json:"coauthor"`
	// Signature allows "Generated with Claude" lines in commits and PRs.
	Signature bool `json:"signature"`
}

// Defaults returns the out-of-the-box settings.
func Defaults() Settings {
	return Settings{Verbose: false, Coauthor: true, Signature: true}
}

// Store reads and writes the settings file.
type Store struct {
	Path string
}

// NewStore returns a store over the settings file at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the persisted settings, with defaults filling anything
// missing. A missing or unreadable file yields pure defaults.
func (s *Store) Load() Settings {
	out := Defaults()
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Defaults()
	}
	return out
}

// Save persists the settings.
func (s *Store) Save(v Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Get returns the named toggle. Unknown names report false.
func (v Settings) Get(name string) bool {
	switch name {
	case "verbose":
		return v.Verbose
	case "coauthor":
		return v.Coauthor
	case "signature":
		return v.Signature
	}
	return false
}

// Set updates the named toggle, reporting whether the name is known.
func (v *Settings) Set(name string, val bool) bool {
	switch name {
	case "verbose":
		v.Verbose = val
	case "coauthor":
		v.Coauthor = val
	case "signature":
		v.Signature = val
	default:
		return false
	}
	return true
}

// ParseToggle interprets a user-supplied on/off argument.
func ParseToggle(arg string) bool {
	switch strings.ToLower(arg) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// NotePrefix builds the instruction prefix prepended to outgoing messages
// when commit-attribution toggles are off. Empty when nothing is disabled.
func (v Settings) NotePrefix() string {
	var parts []string
	if !v.Coauthor {
		parts = append(parts, "no Co-Authored-By")
	}
	if !v.Signature {
		parts = append(parts, "no 'Generated with Claude' signatures")
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("[Note: %s in commits/PRs] ", strings.Join(parts, ", "))
}
