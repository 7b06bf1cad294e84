package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/ordertrack/internal/config"
)

func TestBuild(t *testing.T) {
	for _, enc := range []string{"json", "console"} {
		l, err := Build(config.Observability{ServiceName: "ordertrack", LogLevel: "bogus", LogEncoding: enc})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", enc, err)
		}
		if !l.Core().Enabled(zap.InfoLevel) || l.Core().Enabled(zap.DebugLevel) {
			t.Fatalf("%s: expected info level fallback", enc)
		}
	}
}

func TestForOrder(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ForOrder(zap.New(core), "A-17").Info("paid")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["order_id"]; got != "A-17" {
		t.Fatalf("expected order_id field, got %v", got)
	}
}
