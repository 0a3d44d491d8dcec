package projects

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func setupBase(t *testing.T, names ...string) string {
	t.Helper()
	base := t.TempDir()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(base, n), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// A plain file must not be listed as a project.
	if err := os.WriteFile(filepath.Join(base, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return base
}

func TestListSkipsHiddenAndFiles(t *testing.T) {
	base := setupBase(t, "webapp", "api-server", ".git", ".cache")
	got, err := List(base)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"api-server", "webapp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestListMissingBase(t *testing.T) {
	if _, err := List(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing base")
	}
}

func TestResolveExactMatch(t *testing.T) {
	base := setupBase(t, "webapp", "web")
	got, ok := Resolve(base, "web")
	if !ok || got != filepath.Join(base, "web") {
		t.Errorf("Resolve = %q, %v; exact name must win over fuzzy", got, ok)
	}
}

func TestResolveFuzzyMatch(t *testing.T) {
	base := setupBase(t, "my-webapp", "api-server")
	got, ok := Resolve(base, "webapp")
	if !ok || got != filepath.Join(base, "my-webapp") {
		t.Errorf("Resolve = %q, %v", got, ok)
	}
}

func TestResolveNoMatch(t *testing.T) {
	base := setupBase(t, "webapp")
	if got, ok := Resolve(base, "zzz"); ok {
		t.Errorf("Resolve of unknown name = %q, want not ok", got)
	}
}
