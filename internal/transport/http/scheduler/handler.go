package scheduler

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/Additional-Code/ordertrack/internal/presentation/http/response"
	"github.com/Additional-Code/ordertrack/internal/scheduler"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/ordertrack/transport/http/scheduler")

// Runner performs one reminder pass.
type Runner interface {
	Run(ctx context.Context) (scheduler.Result, error)
}

// Handler exposes the reminder tick for external cron callers.
type Handler struct {
	runner Runner
}

// NewHandler constructs a scheduler Handler.
func NewHandler(s *scheduler.Scheduler) *Handler {
	return &Handler{runner: s}
}

// Module wires the tick endpoint.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/scheduler/tick", h.tick)
	e.POST("/scheduler/tick", h.tick)
}

func (h *Handler) tick(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "scheduler.tick")
	defer span.End()

	res, err := h.runner.Run(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	if res.Skipped {
		b.WithMessage("another tick is in progress")
	}
	return b.WithData(res).Build()
}
