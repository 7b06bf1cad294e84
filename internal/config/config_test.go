package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GatewayTimeout != 10*time.Second {
		t.Fatalf("expected default gateway timeout, got %s", cfg.GatewayTimeout)
	}
	if cfg.Business.Location == nil || cfg.Business.Location.String() != "UTC" {
		t.Fatalf("expected UTC location, got %v", cfg.Business.Location)
	}
	if cfg.Messaging.Kafka.EventsTopic == "" {
		t.Fatal("expected an events topic")
	}
	if cfg.Database.ReaderDSN != cfg.Database.WriterDSN {
		t.Fatal("expected reader DSN to fall back to writer DSN")
	}
}

func TestNewBusinessTimezone(t *testing.T) {
	t.Setenv("BUSINESS_TIMEZONE", "Europe/Moscow")
	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Business.Location.String() != "Europe/Moscow" {
		t.Fatalf("unexpected location %s", cfg.Business.Location)
	}

	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus")
	if _, err := New(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestNewGatewayValidation(t *testing.T) {
	t.Setenv("COMMERCE_ENABLED", "true")
	if _, err := New(); err == nil {
		t.Fatal("expected error when commerce is enabled without a base URL")
	}

	t.Setenv("COMMERCE_BASE_URL", "https://shop.example.com/")
	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Commerce.BaseURL != "https://shop.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Commerce.BaseURL)
	}

	t.Setenv("NOTIFY_ENABLED", "true")
	if _, err := New(); err == nil {
		t.Fatal("expected error when notifications are enabled without a token")
	}
}

func TestNewSchedulerClamps(t *testing.T) {
	t.Setenv("SCHEDULER_CONCURRENCY", "0")
	t.Setenv("GATEWAY_TIMEOUT", "-1s")
	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheduler.Concurrency != 1 {
		t.Fatalf("expected concurrency clamped to 1, got %d", cfg.Scheduler.Concurrency)
	}
	if cfg.GatewayTimeout != 10*time.Second {
		t.Fatalf("expected gateway timeout reset, got %s", cfg.GatewayTimeout)
	}
}

func TestGetEnvAsStringSlice(t *testing.T) {
	t.Setenv("TEST_BROKERS", " a:1, ,b:2 ")
	got := getEnvAsStringSlice("TEST_BROKERS", nil)
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("unexpected slice %v", got)
	}

	t.Setenv("TEST_BROKERS", " , ")
	if got := getEnvAsStringSlice("TEST_BROKERS", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected defaults, got %v", got)
	}
}

func TestTypedGettersFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "seven")
	t.Setenv("TEST_DURATION", " 90s ")
	t.Setenv("TEST_BOOL", "")
	t.Setenv("TEST_RATIO", "0.25")

	if got := getEnvAsInt("TEST_INT", 3); got != 3 {
		t.Fatalf("malformed int should fall back, got %d", got)
	}
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("expected trimmed duration, got %s", got)
	}
	if got := getEnvAsBool("TEST_BOOL", true); !got {
		t.Fatal("blank bool should fall back to default")
	}
	if got := getEnvAsFloat("TEST_RATIO", 1); got != 0.25 {
		t.Fatalf("unexpected ratio %v", got)
	}
	if got := getEnv("TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Fatalf("unexpected value %q", got)
	}
}
