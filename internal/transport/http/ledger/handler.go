package ledger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Additional-Code/ordertrack/internal/dto"
	"github.com/Additional-Code/ordertrack/internal/presentation/http/response"
	service "github.com/Additional-Code/ordertrack/internal/service/order"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/ordertrack/transport/http/ledger")

// Service is the ledger part of the order service.
type Service interface {
	Today() string
	LedgerByDay(ctx context.Context, day string) (*service.LedgerDay, error)
	CleanupPreview(ctx context.Context) (*service.LedgerDay, error)
	CleanupConfirm(ctx context.Context) (*service.CleanupResult, error)
}

// Handler exposes the paid-items ledger.
type Handler struct {
	svc Service
}

// NewHandler constructs a ledger Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Module wires HTTP ledger handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/ledger")
	g.GET("/today", h.byDay)
	g.GET("/today/cleanup", h.preview)
	g.DELETE("/today", h.confirm)
	g.GET("/:day", h.byDay)
}

// byDay serves /ledger/today and /ledger/YYYY-MM-DD.
func (h *Handler) byDay(c echo.Context) error {
	b := response.New(c)
	day := c.Param("day")
	if day == "" {
		day = h.svc.Today()
	}
	ctx, span := httpTracer.Start(c.Request().Context(), "ledger.byDay", trace.WithAttributes(attribute.String("ledger.day", day)))
	defer span.End()

	ledger, err := h.svc.LedgerByDay(ctx, day)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromLedger(ledger.Day, ledger.Total, ledger.Entries)).Build()
}

func (h *Handler) preview(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "ledger.cleanupPreview")
	defer span.End()

	ledger, err := h.svc.CleanupPreview(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromLedger(ledger.Day, ledger.Total, ledger.Entries)).
		WithMessage("confirm with DELETE /ledger/today").
		Build()
}

func (h *Handler) confirm(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "ledger.cleanupConfirm")
	defer span.End()

	res, err := h.svc.CleanupConfirm(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(res).Build()
}
