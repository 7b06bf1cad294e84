package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
)

func TestNewEchoHealth(t *testing.T) {
	e := NewEcho(config.Config{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("expected a request id on every response")
	}
	if e.Validator == nil {
		t.Fatal("expected validator to be installed")
	}
}

func TestNewEchoRecoversPanics(t *testing.T) {
	e := NewEcho(config.Config{}, nil, zap.NewNop())
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}
