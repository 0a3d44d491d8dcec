// claudecode-telegram bridges a Telegram chat to a Claude Code instance
// running inside a tmux pane: messages are typed into the pane, interactive
// menus come back as inline keyboards, and a turn-completion hook notifies
// the chat when Claude finishes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crayonluffy/claudecode-telegram/internal/config"
	"github.com/crayonluffy/claudecode-telegram/internal/history"
	"github.com/crayonluffy/claudecode-telegram/internal/logging"
	"github.com/crayonluffy/claudecode-telegram/internal/settings"
	"github.com/crayonluffy/claudecode-telegram/internal/telegram"
	"github.com/crayonluffy/claudecode-telegram/internal/tmux"
	"github.com/crayonluffy/claudecode-telegram/internal/turn"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "claudecode-telegram: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(logging.Config{
		LogDir: cfg.LogDir(),
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	defer logging.Shutdown()
	log := logging.ForComponent(logging.CompBridge)

	if err := tmux.Available(); err != nil {
		return err
	}

	client, err := telegram.NewClient(cfg.Telegram.BotToken)
	if err != nil {
		return err
	}

	hist, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	defer hist.Close()

	gw := tmux.NewGateway(cfg.Tmux.Session, cfg.SessionStatePath())
	latch := turn.NewLatch(cfg.TurnMarkerPath())
	prefs := settings.NewStore(cfg.SettingsPath())
	bridge := telegram.NewBridge(client, gw, latch, hist, prefs, cfg)

	if err := client.RegisterCommands(telegram.BotCommands); err != nil {
		log.Warn("command_registration_failed", slog.String("error", err.Error()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The Stop hook inside Claude Code removes the marker file; watching it
	// is what turns "Claude finished" into a chat notification.
	watcher, err := turn.NewWatcher(latch, bridge.NotifyTurnDone)
	if err != nil {
		return fmt.Errorf("watch turn marker: %w", err)
	}
	go watcher.Start(ctx)

	// A marker surviving a bridge restart means a turn is still in flight;
	// re-attach the prompt monitor so its menus keep reaching the chat.
	if latch.Pending() {
		if chatID, ok := bridge.ResumeChatID(); ok {
			log.Info("resuming_monitor", slog.Int64("chat_id", chatID))
			bridge.ResumeMonitor(ctx, chatID)
		}
	}

	log.Info("bridge_started",
		slog.String("bot", client.Username()),
		slog.Int("port", cfg.Server.Port),
		slog.String("session", gw.CurrentSession()))

	srv := telegram.NewServer(cfg.Server.Port, bridge, bridge.Capture, cfg.Server.ScreenToken)
	return srv.Run(ctx)
}
