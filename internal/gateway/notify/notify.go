// Package notify delivers operator and supplier messages through a chat bot.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
)

var tracer = otel.Tracer("github.com/Additional-Code/ordertrack/gateway/notify")

// Sender delivers a text message to a chat.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// Channels names the chats messages are routed to.
type Channels struct {
	Operator string
	Supplier string
}

// Module provides the sender and its channels to Fx.
var Module = fx.Provide(
	New,
	func(cfg config.Config) Channels {
		return Channels{Operator: cfg.Notify.OperatorChatID, Supplier: cfg.Notify.SupplierChatID}
	},
)

// New returns a Telegram sender when notifications are enabled, otherwise a noop.
func New(cfg config.Config, logger *zap.Logger) Sender {
	if !cfg.Notify.Enabled {
		logger.Info("notifications disabled; using noop sender")
		return Noop{}
	}
	return NewTelegram(cfg.Notify, &http.Client{Timeout: cfg.GatewayTimeout})
}

// Noop drops every message.
type Noop struct{}

// Send implements Sender.
func (Noop) Send(context.Context, string, string) error { return nil }

// ErrNoChannel is returned when a message has no destination.
var ErrNoChannel = errors.New("notification channel is not configured")

// APIError is a failed Bot API call.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bot api error %d: %s", e.Code, e.Description)
}

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	endpoint string
	http     *http.Client
}

// NewTelegram builds a sender for the given settings.
func NewTelegram(cfg config.Notify, hc *http.Client) *Telegram {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", cfg.BaseURL, cfg.BotToken),
		http:     hc,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send posts text as HTML; if that is rejected it retries once as plain text.
func (t *Telegram) Send(ctx context.Context, channelID, text string) error {
	if channelID == "" {
		return ErrNoChannel
	}

	ctx, span := tracer.Start(ctx, "Notify.Send", trace.WithAttributes(attribute.String("notify.channel", channelID)))
	defer span.End()

	err := t.post(ctx, sendMessageRequest{ChatID: channelID, Text: text, ParseMode: "HTML"})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}

	span.AddEvent("plain text fallback")
	if fallbackErr := t.post(ctx, sendMessageRequest{ChatID: channelID, Text: text}); fallbackErr != nil {
		err = errors.Join(err, fallbackErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}
	return nil
}

func (t *Telegram) post(ctx context.Context, msg sendMessageRequest) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("bot api request: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return &APIError{Code: resp.StatusCode, Description: "unreadable response"}
	}
	if !out.OK || resp.StatusCode/100 != 2 {
		code := out.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Code: code, Description: out.Description}
	}
	return nil
}
