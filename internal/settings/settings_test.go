package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	got := s.Load()
	if got != Defaults() {
		t.Errorf("Load = %+v, want defaults", got)
	}
	if got.Verbose || !got.Coauthor || !got.Signature {
		t.Errorf("defaults = %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "settings.json"))
	want := Settings{Verbose: true, Coauthor: false, Signature: true}
	if err := s.Save(want); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(); got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestLoadCorruptFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NewStore(path).Load(); got != Defaults() {
		t.Errorf("Load of corrupt file = %+v, want defaults", got)
	}
}

func TestGetSet(t *testing.T) {
	v := Defaults()
	if !v.Set("verbose", true) || !v.Get("verbose") {
		t.Error("verbose toggle failed")
	}
	if !v.Set("coauthor", false) || v.Get("coauthor") {
		t.Error("coauthor toggle failed")
	}
	if v.Set("unknown", true) {
		t.Error("unknown setting must be rejected")
	}
	if v.Get("unknown") {
		t.Error("unknown setting must read false")
	}
}

func TestParseToggle(t *testing.T) {
	for _, on := range []string{"on", "ON", "true", "1", "yes", "Yes"} {
		if !ParseToggle(on) {
			t.Errorf("ParseToggle(%q) = false, want true", on)
		}
	}
	for _, off := range []string{"off", "false", "0", "no", "", "enable"} {
		if ParseToggle(off) {
			t.Errorf("ParseToggle(%q) = true, want false", off)
		}
	}
}

func TestNotePrefix(t *testing.T) {
	if got := Defaults().NotePrefix(); got != "" {
		t.Errorf("defaults NotePrefix = %q, want empty", got)
	}

	v := Settings{Coauthor: false, Signature: true}
	if got := v.NotePrefix(); got != "[Note: no Co-Authored-By in commits/PRs] " {
		t.Errorf("NotePrefix = %q", got)
	}

	v = Settings{Coauthor: false, Signature: false}
	want := "[Note: no Co-Authored-By, no 'Generated with Claude' signatures in commits/PRs] "
	if got := v.NotePrefix(); got != want {
		t.Errorf("NotePrefix = %q, want %q", got, want)
	}
}
