package order

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	"github.com/Additional-Code/ordertrack/internal/logger"
	"github.com/Additional-Code/ordertrack/internal/messaging"
)

// AdvanceReminder applies at most one reminder step to order as loaded by
// the caller. The patch is guarded by the loaded version and is not retried:
// a concurrent change surfaces as repo.ErrVersionConflict and the order is
// evaluated again on the next tick.
func (s *Service) AdvanceReminder(ctx context.Context, order entity.Order, now time.Time) (lifecycle.Reminder, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.AdvanceReminder", trace.WithAttributes(attribute.String("order.id", order.OrderID)))
	defer span.End()

	step := lifecycle.ComputeReminderStep(order, now)
	if step.Empty() {
		return lifecycle.ReminderNone, nil
	}
	span.SetAttributes(attribute.String("order.reminder", step.Reminder.String()))

	next := step.Order()
	if err := s.store.Patch(ctx, &next, order.Version, step.Columns()...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "patch failed")
		return lifecycle.ReminderNone, err
	}
	s.invalidate(ctx, order.OrderID)

	logger.ForOrder(s.logger, order.OrderID).Info("reminder step applied",
		zap.String("reminder", step.Reminder.String()),
		zap.String("status", string(next.Status)),
	)

	s.send(ctx, order.OrderID, s.channels.Operator, reminderText(&next, step.Reminder))
	if step.Touches(entity.ColStatus) {
		s.mirrorStatus(ctx, &next)
	}
	s.publish(ctx, messaging.EventOrderReminder, &next, step.Reminder)
	return step.Reminder, nil
}
