package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/websocket"

	"github.com/crayonluffy/claudecode-telegram/internal/logging"
)

// UpdateHandler consumes decoded webhook updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update)
}

// screenInterval paces the live screen mirror. Matches the capture cache
// TTL so mirror clients piggyback on the monitor's captures.
const screenInterval = 500 * time.Millisecond

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     allowWSOrigin,
}

// allowWSOrigin permits same-host browser connections and non-browser
// clients that send no Origin header.
func allowWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost, _, err := net.SplitHostPort(u.Host)
	if err != nil {
		originHost = u.Host
	}
	reqHost, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		reqHost = r.Host
	}
	return originHost == reqHost
}

// Server is the HTTP face of the bridge: the Telegram webhook endpoint, a
// health check, and a live screen mirror over websocket.
type Server struct {
	handler UpdateHandler
	capture func() (string, error)
	// screenToken, when set, gates the screen mirror behind a shared
	// secret in the query string.
	screenToken string
	httpSrv     *http.Server

	// baseCtx outlives individual webhook requests so turn goroutines
	// spawned from a handler keep running after the request returns.
	baseCtx context.Context

	log *slog.Logger
}

// NewServer builds the server. capture feeds the screen mirror; an empty
// screenToken leaves the mirror open.
func NewServer(port int, handler UpdateHandler, capture func() (string, error), screenToken string) *Server {
	s := &Server{
		handler:     handler,
		capture:     capture,
		screenToken: screenToken,
		log:         logging.ForComponent(logging.CompHTTP),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withRecover(s.handleRoot))
	mux.HandleFunc("/telegram/webhook", s.withRecover(s.handleWebhookRoute))
	mux.HandleFunc("/healthz", s.withRecover(s.handleHealth))
	mux.HandleFunc("/ws/screen", s.withRecover(s.handleScreenWS))
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.log.Info("server_started", slog.String("addr", s.httpSrv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// withRecover keeps a panicking handler from killing the whole process.
func (s *Server) withRecover(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler_panic",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// handleRoot answers the webhook POSTs and a trivial GET banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		fmt.Fprintln(w, "Claude-Telegram Bridge")
	case http.MethodPost:
		s.handleWebhook(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWebhookRoute is the explicit webhook path for setups that point
// Telegram at a subpath behind a reverse proxy.
func (s *Server) handleWebhookRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleWebhook(w, r)
}

// handleWebhook decodes the update and dispatches it synchronously.
// Telegram retries non-200 responses, so decode failures still return 200
// to avoid redelivery loops on permanently malformed payloads.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.log.Warn("webhook_decode_failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := s.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	s.handler.HandleUpdate(ctx, &update)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleScreenWS streams the pane content to the client until it
// disconnects. Each frame is the full normalized screen.
func (s *Server) handleScreenWS(w http.ResponseWriter, r *http.Request) {
	if s.screenToken != "" && r.URL.Query().Get("token") != s.screenToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws_upgrade_failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	s.log.Debug("screen_ws_connected", slog.String("remote", r.RemoteAddr))

	// Drain control frames so pings and close get processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(screenInterval)
	defer ticker.Stop()
	last := ""
	for range ticker.C {
		content, err := s.capture()
		if err != nil {
			continue
		}
		if content == last {
			continue
		}
		last = content
		if err := conn.WriteMessage(websocket.TextMessage, []byte(content)); err != nil {
			return
		}
	}
}
