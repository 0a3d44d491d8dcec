// Package projects lists the project directories a session can start in
// and resolves loosely spelled names against them.
package projects

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sahilm/fuzzy"
)

// List returns the non-hidden directories directly under base, sorted.
func List(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("read projects dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Resolve maps a user-typed project name to a directory under base. Exact
// names win; otherwise the best fuzzy match does, so "/start webapp" finds
// "my-webapp". ok is false when nothing under base resembles the name.
func Resolve(base, name string) (string, bool) {
	dirs, err := List(base)
	if err != nil {
		return "", false
	}
	for _, d := range dirs {
		if d == name {
			return filepath.Join(base, d), true
		}
	}
	matches := fuzzy.Find(name, dirs)
	if len(matches) == 0 {
		return "", false
	}
	return filepath.Join(base, matches[0].Str), true
}
