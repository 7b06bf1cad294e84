// Package order registers the worker handlers for order traffic.
package order

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/internal/messaging"
	"github.com/Additional-Code/ordertrack/internal/scheduler"
	ordersvc "github.com/Additional-Code/ordertrack/internal/service/order"
	"github.com/Additional-Code/ordertrack/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/ordertrack/worker/order")

// Ingester stores inbound order payloads.
type Ingester interface {
	Ingest(ctx context.Context, payload []byte) ordersvc.IngestResult
}

// Module registers the inbound order handler and the reminder ticker.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			func(svc *ordersvc.Service, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
				return NewInboundHandler(svc, logger, cfg)
			},
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			func(s *scheduler.Scheduler) worker.Ticker { return s },
			fx.ResultTags(`group:"worker.tickers"`),
		),
	),
)

// NewInboundHandler consumes raw storefront payloads from the inbound topic.
// Every payload is acknowledged; failed ingests are logged and left for the
// operator rather than redelivered.
func NewInboundHandler(svc Ingester, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.ingest", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		res := svc.Ingest(ctx, msg.Value)
		span.SetAttributes(
			attribute.String("ingest.outcome", string(res.Outcome)),
			attribute.String("order.id", res.OrderID),
		)

		if res.Outcome == ordersvc.IngestError {
			err := fmt.Errorf("ingest order %q: %s", res.OrderID, res.Reason)
			span.RecordError(err)
			span.SetStatus(codes.Error, "ingest failed")
			logger.Error("inbound order dropped",
				zap.String("order_id", res.OrderID),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return nil
		}

		logger.Debug("inbound order processed",
			zap.String("order_id", res.OrderID),
			zap.String("outcome", string(res.Outcome)),
			zap.String("reason", res.Reason),
		)
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
