package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	"github.com/Additional-Code/ordertrack/internal/logger"
	"github.com/Additional-Code/ordertrack/internal/messaging"
	"github.com/Additional-Code/ordertrack/pkg/errorbank"
)

// CancelMode selects how far a cancel command goes.
type CancelMode string

const (
	// CancelHide only hides the order from today's views.
	CancelHide CancelMode = "hide"
	// CancelFull snapshots the order and cancels it, keeping it restorable.
	CancelFull CancelMode = "full"
)

// RestoreResult reports whether a restore changed anything.
type RestoreResult struct {
	Restored bool          `json:"restored"`
	Order    *entity.Order `json:"order"`
}

// Cancel applies a cancel command. A full cancel is mirrored to the storefront.
func (s *Service) Cancel(ctx context.Context, orderID string, mode CancelMode) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("cancel.mode", string(mode)),
	))
	defer span.End()

	var compute func(entity.Order) (lifecycle.Change, error)
	switch mode {
	case CancelHide:
		compute = func(o entity.Order) (lifecycle.Change, error) { return lifecycle.HideOnly(o), nil }
	case CancelFull:
		compute = lifecycle.CancelFull
	default:
		return nil, errorbank.BadRequest("unknown cancel mode", errorbank.WithDetail("mode", string(mode)))
	}

	order, change, err := s.apply(ctx, orderID, compute)
	if err != nil {
		return nil, s.translate(span, orderID, err)
	}
	if mode == CancelHide || change.Empty() {
		return order, nil
	}

	logger.ForOrder(s.logger, orderID).Info("order cancelled",
		zap.String("previous_status", string(*order.PreviousStatus)))
	s.mirrorStatus(ctx, order)
	s.send(ctx, orderID, s.channels.Operator, cancelledText(order))
	s.publish(ctx, messaging.EventOrderCancelled, order, lifecycle.ReminderNone)
	return order, nil
}

// Restore reverts the last full cancel. Without a pending snapshot it reports
// Restored=false and changes nothing.
func (s *Service) Restore(ctx context.Context, orderID string) (*RestoreResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Restore", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	var restored bool
	order, _, err := s.apply(ctx, orderID, func(o entity.Order) (lifecycle.Change, error) {
		change, ok := lifecycle.Restore(o)
		restored = ok
		return change, nil
	})
	if err != nil {
		return nil, s.translate(span, orderID, err)
	}
	if !restored {
		logger.ForOrder(s.logger, orderID).Info("nothing to restore")
		return &RestoreResult{Restored: false, Order: order}, nil
	}

	logger.ForOrder(s.logger, orderID).Info("order restored", zap.String("status", string(order.Status)))
	s.mirrorStatus(ctx, order)
	s.send(ctx, orderID, s.channels.Operator, restoredText(order))
	s.publish(ctx, messaging.EventOrderRestored, order, lifecycle.ReminderNone)
	return &RestoreResult{Restored: true, Order: order}, nil
}

// Unhide reverses a hide-only cancel. Unhiding a visible order is a no-op.
func (s *Service) Unhide(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Unhide", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order, change, err := s.apply(ctx, orderID, func(o entity.Order) (lifecycle.Change, error) {
		return lifecycle.Unhide(o), nil
	})
	if err != nil {
		return nil, s.translate(span, orderID, err)
	}
	if !change.Empty() {
		logger.ForOrder(s.logger, orderID).Info("order visible again")
	}
	return order, nil
}

// Complete closes a paid order.
func (s *Service) Complete(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Complete", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order, change, err := s.apply(ctx, orderID, lifecycle.Complete)
	if err != nil {
		return nil, s.translate(span, orderID, err)
	}
	if change.Empty() {
		return order, nil
	}

	logger.ForOrder(s.logger, orderID).Info("order completed")
	s.mirrorStatus(ctx, order)
	s.publish(ctx, messaging.EventOrderCompleted, order, lifecycle.ReminderNone)
	return order, nil
}
