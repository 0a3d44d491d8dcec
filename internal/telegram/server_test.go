package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates []*tgbotapi.Update
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}

func newTestServer(h UpdateHandler) *httptest.Server {
	s := NewServer(0, h, func() (string, error) { return "", nil }, "")
	return httptest.NewServer(s.httpSrv.Handler)
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	h := &recordingHandler{}
	ts := newTestServer(h)
	defer ts.Close()

	body := `{"update_id":1,"message":{"message_id":5,"chat":{"id":42},"text":"hello"}}`
	resp, err := http.Post(ts.URL+"/", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if h.count() != 1 {
		t.Fatalf("handler calls = %d, want 1", h.count())
	}
	msg := h.updates[0].Message
	if msg == nil || msg.Chat.ID != 42 || msg.Text != "hello" {
		t.Errorf("decoded update = %+v", h.updates[0])
	}
}

func TestWebhookMalformedBodyStillAcknowledged(t *testing.T) {
	h := &recordingHandler{}
	ts := newTestServer(h)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 to stop redelivery", resp.StatusCode)
	}
	if h.count() != 0 {
		t.Errorf("handler called on malformed body")
	}
}

func TestRootBannerAndHealth(t *testing.T) {
	ts := newTestServer(&recordingHandler{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("healthz content type = %q", ct)
	}
}

func TestUnknownPathAndMethod(t *testing.T) {
	ts := newTestServer(&recordingHandler{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("DELETE / status = %d", resp.StatusCode)
	}
}

func TestWebhookSubpathRoute(t *testing.T) {
	h := &recordingHandler{}
	ts := newTestServer(h)
	defer ts.Close()

	body := `{"update_id":2,"message":{"message_id":6,"chat":{"id":9},"text":"hi"}}`
	resp, err := http.Post(ts.URL+"/telegram/webhook", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if h.count() != 1 {
		t.Errorf("handler calls = %d, want 1", h.count())
	}

	resp, err = http.Get(ts.URL + "/telegram/webhook")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET webhook status = %d", resp.StatusCode)
	}
}

func TestScreenWSRejectsBadToken(t *testing.T) {
	s := NewServer(0, &recordingHandler{}, func() (string, error) { return "", nil }, "secret")
	ts := httptest.NewServer(s.httpSrv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws/screen?token=wrong")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestAllowWSOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin header", "", "localhost:8080", true},
		{"same host", "http://localhost:8080", "localhost:8080", true},
		{"same host different port", "http://localhost:3000", "localhost:8080", true},
		{"different host", "http://evil.example", "localhost:8080", false},
		{"garbage origin", "://bad", "localhost:8080", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws/screen", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := allowWSOrigin(r); got != tt.want {
				t.Errorf("allowWSOrigin(origin=%q, host=%q) = %v, want %v",
					tt.origin, tt.host, got, tt.want)
			}
		})
	}
}
