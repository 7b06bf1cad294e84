// Package commerce mirrors local order statuses to the storefront's REST API.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/internal/entity"
)

var tracer = otel.Tracer("github.com/Additional-Code/ordertrack/gateway/commerce")

// Client updates order statuses on the storefront.
type Client interface {
	SetOrderStatus(ctx context.Context, orderID string, status entity.Status) error
}

// Module provides the commerce client to Fx.
var Module = fx.Provide(New)

// New returns an HTTP client when commerce mirroring is enabled, otherwise a noop.
func New(cfg config.Config, logger *zap.Logger) Client {
	if !cfg.Commerce.Enabled {
		logger.Info("commerce mirroring disabled; using noop client")
		return Noop{}
	}
	return NewHTTPClient(cfg.Commerce, &http.Client{Timeout: cfg.GatewayTimeout})
}

// Noop discards every status update.
type Noop struct{}

// SetOrderStatus implements Client.
func (Noop) SetOrderStatus(context.Context, string, entity.Status) error { return nil }

// RemoteStatus maps a local status to the storefront vocabulary.
func RemoteStatus(s entity.Status) (string, bool) {
	switch s {
	case entity.StatusPendingPayment:
		return "pending", true
	case entity.StatusPaid:
		return "processing", true
	case entity.StatusCancelled:
		return "cancelled", true
	case entity.StatusCompleted:
		return "completed", true
	}
	return "", false
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("commerce api responded %d: %s", e.Code, e.Body)
}

// HTTPClient talks to a WooCommerce-compatible REST API.
type HTTPClient struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
}

// NewHTTPClient builds a client for the given settings.
func NewHTTPClient(cfg config.Commerce, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		key:     cfg.ConsumerKey,
		secret:  cfg.ConsumerSecret,
		http:    hc,
	}
}

// SetOrderStatus updates the remote order status. Statuses without a remote
// counterpart are skipped.
func (c *HTTPClient) SetOrderStatus(ctx context.Context, orderID string, status entity.Status) error {
	remote, ok := RemoteStatus(status)
	if !ok {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Commerce.SetOrderStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("commerce.status", remote),
	))
	defer span.End()

	body, err := json.Marshal(map[string]string{"status": remote})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/orders/%s", c.baseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.key, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("commerce request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := &StatusError{Code: resp.StatusCode, Body: string(snippet)}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
