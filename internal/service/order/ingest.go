package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	"github.com/Additional-Code/ordertrack/internal/messaging"
	"github.com/Additional-Code/ordertrack/internal/normalizer"
	repo "github.com/Additional-Code/ordertrack/internal/repository/order"
)

// IngestOutcome is the acknowledgement returned to the order source.
type IngestOutcome string

const (
	IngestCreated IngestOutcome = "created"
	IngestIgnored IngestOutcome = "ignored"
	IngestError   IngestOutcome = "error"
)

// IngestResult describes what happened to an inbound payload.
type IngestResult struct {
	Outcome IngestOutcome `json:"outcome"`
	OrderID string        `json:"order_id,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// Ingest normalizes an inbound order payload and stores it as a pending
// order. It never returns an error: failures are logged and acknowledged so
// the sender does not retry.
func (s *Service) Ingest(ctx context.Context, payload []byte) IngestResult {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Ingest")
	defer span.End()

	parsed := normalizer.ParseOrder(payload)
	span.SetAttributes(attribute.String("order.id", parsed.OrderID), attribute.Int("order.items", len(parsed.Items)))

	if parsed.OrderID == "" {
		s.logger.Warn("inbound order without id ignored", zap.Int("payload_bytes", len(payload)))
		return IngestResult{Outcome: IngestIgnored, Reason: "missing order id"}
	}

	order := NewPendingOrder(parsed, s.now())
	log := s.logger.With(zap.String("order_id", order.OrderID))

	if err := s.store.Insert(ctx, order); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			log.Info("duplicate inbound order ignored")
			return IngestResult{Outcome: IngestIgnored, OrderID: order.OrderID, Reason: "already exists"}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		log.Error("inbound order not stored", zap.Error(err))
		return IngestResult{Outcome: IngestError, OrderID: order.OrderID, Reason: "store failure"}
	}

	log.Info("order created",
		zap.String("amount", order.Amount.String()),
		zap.Int("items", len(order.Items)),
		zap.Int("quantity", order.Quantity),
	)

	s.send(ctx, order.OrderID, s.channels.Operator, newOrderText(order))
	s.publish(ctx, messaging.EventOrderCreated, order, lifecycle.ReminderNone)

	return IngestResult{Outcome: IngestCreated, OrderID: order.OrderID}
}

// NewPendingOrder builds a fresh pending order from a parsed payload.
func NewPendingOrder(p normalizer.Parsed, now time.Time) *entity.Order {
	sum := normalizer.Aggregate(p.Items)
	return &entity.Order{
		OrderID:   p.OrderID,
		Status:    entity.StatusPendingPayment,
		Amount:    p.Amount,
		Customer:  p.Customer,
		Phone:     p.Phone,
		Product:   sum.Product,
		SKU:       sum.SKU,
		Sizes:     sum.Sizes,
		Technique: sum.Technique,
		Quantity:  sum.Quantity,
		Items:     p.Items,
		CreatedAt: now,
		Version:   1,
	}
}
