package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitAndLog(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "debug", Format: "json"})
	defer Shutdown()

	log := ForComponent(CompPrompt)
	log.Info("test_event", slog.String("key", "value"))

	data, err := os.ReadFile(filepath.Join(dir, "bridge.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "test_event") {
		t.Errorf("log file missing event, got: %s", content)
	}
	if !strings.Contains(content, `"component":"prompt"`) {
		t.Errorf("log file missing component attr, got: %s", content)
	}
}

func TestForComponentBeforeInit(t *testing.T) {
	Shutdown()
	// Must not panic even though no handler is configured yet.
	log := ForComponent(CompTmux)
	log.Info("pre_init_event")

	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "info"})
	defer Shutdown()

	// Same logger instance now writes through the real handler.
	log.Info("post_init_event")

	data, err := os.ReadFile(filepath.Join(dir, "bridge.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "post_init_event") {
		t.Errorf("dynamic handler did not pick up new handler: %s", data)
	}
	if strings.Contains(string(data), "pre_init_event") {
		t.Errorf("pre-init event unexpectedly persisted: %s", data)
	}
}

func TestCrashBufferDump(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "info"})
	defer Shutdown()

	Logger().Info("crash_dump_marker")

	dumpPath := filepath.Join(dir, "crash.log")
	if err := DumpCrashBuffer(dumpPath); err != nil {
		t.Fatalf("dump: %v", err)
	}
	data, err := os.ReadFile(dumpPath)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.Contains(string(data), "crash_dump_marker") {
		t.Errorf("crash dump missing log line: %s", data)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "warn"})
	defer Shutdown()

	log := ForComponent(CompHTTP)
	log.Debug("should_not_appear")
	log.Warn("should_appear")

	data, _ := os.ReadFile(filepath.Join(dir, "bridge.log"))
	if strings.Contains(string(data), "should_not_appear") {
		t.Error("debug line logged despite warn level")
	}
	if !strings.Contains(string(data), "should_appear") {
		t.Error("warn line missing")
	}
}
