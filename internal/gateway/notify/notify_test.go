package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Additional-Code/ordertrack/internal/config"
)

type botServer struct {
	mu       sync.Mutex
	requests []sendMessageRequest
	paths    []string
	reply    func(n int) (int, string)
}

func (b *botServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.paths = append(b.paths, r.URL.Path)
	n := len(b.requests)
	b.mu.Unlock()

	code, body := b.reply(n)
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func TestTelegramSendHTML(t *testing.T) {
	bot := &botServer{reply: func(int) (int, string) { return http.StatusOK, `{"ok":true}` }}
	srv := httptest.NewServer(bot)
	defer srv.Close()

	sender := NewTelegram(config.Notify{BaseURL: srv.URL, BotToken: "T0K"}, srv.Client())
	if err := sender.Send(context.Background(), "-100", "<b>Order 1</b> paid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bot.requests) != 1 {
		t.Fatalf("expected a single request, got %d", len(bot.requests))
	}
	if bot.paths[0] != "/botT0K/sendMessage" {
		t.Fatalf("unexpected path %s", bot.paths[0])
	}
	if bot.requests[0].ParseMode != "HTML" || bot.requests[0].ChatID != "-100" {
		t.Fatalf("unexpected request %+v", bot.requests[0])
	}
}

func TestTelegramSendFallsBackToPlainText(t *testing.T) {
	bot := &botServer{reply: func(n int) (int, string) {
		if n == 1 {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"can't parse entities"}`
		}
		return http.StatusOK, `{"ok":true}`
	}}
	srv := httptest.NewServer(bot)
	defer srv.Close()

	sender := NewTelegram(config.Notify{BaseURL: srv.URL, BotToken: "x"}, srv.Client())
	if err := sender.Send(context.Background(), "42", "Size <L>"); err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if len(bot.requests) != 2 || bot.requests[1].ParseMode != "" {
		t.Fatalf("expected plain text retry, got %+v", bot.requests)
	}
}

func TestTelegramSendReportsBothFailures(t *testing.T) {
	bot := &botServer{reply: func(int) (int, string) {
		return http.StatusForbidden, `{"ok":false,"error_code":403,"description":"bot was blocked"}`
	}}
	srv := httptest.NewServer(bot)
	defer srv.Close()

	sender := NewTelegram(config.Notify{BaseURL: srv.URL, BotToken: "x"}, srv.Client())
	err := sender.Send(context.Background(), "42", "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 403 {
		t.Fatalf("expected api error 403, got %v", err)
	}
	if len(bot.requests) != 2 {
		t.Fatalf("expected exactly one retry, got %d requests", len(bot.requests))
	}
}

func TestTelegramSendRequiresChannel(t *testing.T) {
	sender := NewTelegram(config.Notify{BaseURL: "http://127.0.0.1:0"}, nil)
	if err := sender.Send(context.Background(), "", "hi"); !errors.Is(err, ErrNoChannel) {
		t.Fatalf("expected ErrNoChannel, got %v", err)
	}
}
