package order

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/dto"
	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/presentation/http/response"
	service "github.com/Additional-Code/ordertrack/internal/service/order"
	"github.com/Additional-Code/ordertrack/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/ordertrack/transport/http/order")

const maxWebhookBytes = 1 << 20

// Service is the subset of the order service the HTTP layer drives.
type Service interface {
	Ingest(ctx context.Context, payload []byte) service.IngestResult
	Get(ctx context.Context, orderID string) (*entity.Order, error)
	ListToday(ctx context.Context) ([]entity.Order, error)
	MarkPaid(ctx context.Context, orderID string) (*service.PaymentResult, error)
	Cancel(ctx context.Context, orderID string, mode service.CancelMode) (*entity.Order, error)
	Restore(ctx context.Context, orderID string) (*service.RestoreResult, error)
	Unhide(ctx context.Context, orderID string) (*entity.Order, error)
	Complete(ctx context.Context, orderID string) (*entity.Order, error)
	PurgeDeleted(ctx context.Context) (int, error)
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Module wires HTTP order handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/webhooks/orders", h.webhook)

	g := e.Group("/orders")
	g.GET("/today", h.listToday)
	g.DELETE("/deleted", h.purge)
	g.GET("/:id", h.get)
	g.POST("/:id/paid", h.markPaid)
	g.POST("/:id/cancel", h.cancel)
	g.POST("/:id/restore", h.restore)
	g.POST("/:id/unhide", h.unhide)
	g.POST("/:id/complete", h.complete)
}

// webhook always answers 200 so the storefront never retries; the outcome
// is reported in the body.
func (h *Handler) webhook(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.webhook")
	defer span.End()

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes+1))
	if err != nil {
		h.logger.Warn("webhook body unreadable", zap.Error(err))
		return response.New(c).WithData(service.IngestResult{Outcome: service.IngestError, Reason: "unreadable body"}).Build()
	}
	if len(payload) > maxWebhookBytes {
		h.logger.Warn("webhook body too large", zap.Int("limit", maxWebhookBytes))
		span.SetAttributes(attribute.String("ingest.outcome", string(service.IngestError)))
		return response.New(c).WithData(service.IngestResult{Outcome: service.IngestError, Reason: "payload too large"}).Build()
	}

	res := h.svc.Ingest(ctx, payload)
	span.SetAttributes(attribute.String("ingest.outcome", string(res.Outcome)))
	return response.New(c).WithData(res).Build()
}

func (h *Handler) listToday(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listToday")
	defer span.End()

	orders, err := h.svc.ListToday(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrders(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")
	ctx, span := h.start(c, "orders.get", id)
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) markPaid(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")
	ctx, span := h.start(c, "orders.markPaid", id)
	defer span.End()

	res, err := h.svc.MarkPaid(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	if res.AlreadyPaid {
		b.WithMessage("order was already paid")
	}
	return b.WithData(dto.FromOrder(res.Order)).
		WithMeta("ledger_recorded", res.LedgerRecorded).
		WithMeta("supplier_notified", res.SupplierNotice).
		Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var req dto.CancelRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if err := c.Validate(&req); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := h.start(c, "orders.cancel", id)
	defer span.End()
	span.SetAttributes(attribute.String("cancel.mode", req.Mode))

	order, err := h.svc.Cancel(ctx, id, service.CancelMode(req.Mode))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) restore(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")
	ctx, span := h.start(c, "orders.restore", id)
	defer span.End()

	res, err := h.svc.Restore(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	if !res.Restored {
		b.WithMessage("nothing to restore")
	}
	return b.WithData(dto.FromOrder(res.Order)).WithMeta("restored", res.Restored).Build()
}

func (h *Handler) unhide(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")
	ctx, span := h.start(c, "orders.unhide", id)
	defer span.End()

	order, err := h.svc.Unhide(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) complete(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")
	ctx, span := h.start(c, "orders.complete", id)
	defer span.End()

	order, err := h.svc.Complete(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) purge(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.purge")
	defer span.End()

	n, err := h.svc.PurgeDeleted(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int{"purged": n}).Build()
}

func (h *Handler) start(c echo.Context, name, orderID string) (context.Context, trace.Span) {
	return httpTracer.Start(c.Request().Context(), name, trace.WithAttributes(attribute.String("order.id", orderID)))
}
