package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	"github.com/Additional-Code/ordertrack/internal/logger"
	"github.com/Additional-Code/ordertrack/internal/messaging"
)

// PaymentResult reports the outcome of a paid command.
type PaymentResult struct {
	Order          *entity.Order `json:"order"`
	AlreadyPaid    bool          `json:"already_paid"`
	LedgerRecorded bool          `json:"ledger_recorded"`
	SupplierNotice bool          `json:"supplier_notified"`
}

// MarkPaid finalizes payment: the order moves to paid, a ledger entry is
// recorded for the payment day and the storefront, operator and supplier are
// told. Repeating the command leaves the order untouched and only repairs a
// missing ledger entry or an undelivered supplier summary.
func (s *Service) MarkPaid(ctx context.Context, orderID string) (*PaymentResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.MarkPaid", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	now := s.now()
	order, change, err := s.apply(ctx, orderID, func(o entity.Order) (lifecycle.Change, error) {
		return lifecycle.MarkPaid(o, now)
	})
	if err != nil {
		return nil, s.translate(span, orderID, err)
	}

	log := logger.ForOrder(s.logger, orderID)
	res := &PaymentResult{Order: order, AlreadyPaid: change.Empty()}

	entry := ledgerEntryFor(order, s.location, now)
	inserted, err := s.store.InsertLedgerEntry(ctx, entry)
	switch {
	case err != nil:
		span.RecordError(err)
		log.Error("ledger entry not recorded", zap.String("day", entry.Day), zap.Error(err))
	default:
		res.LedgerRecorded = true
		if inserted {
			log.Info("ledger entry recorded", zap.String("day", entry.Day))
		}
	}

	if !res.AlreadyPaid {
		log.Info("order paid", zap.String("amount", chargedAmount(order).String()))
		s.mirrorStatus(ctx, order)
		s.send(ctx, orderID, s.channels.Operator, paidText(order))
		s.publish(ctx, messaging.EventOrderPaid, order, lifecycle.ReminderNone)
	}

	if order.PaidMessagePending {
		res.SupplierNotice = s.deliverSupplierSummary(ctx, order)
	}
	return res, nil
}

// deliverSupplierSummary sends the production summary and clears the pending
// flag once it is accepted. The flag stays set on failure so a later paid
// command retries delivery.
func (s *Service) deliverSupplierSummary(ctx context.Context, order *entity.Order) bool {
	if !s.send(ctx, order.OrderID, s.channels.Supplier, supplierText(order)) {
		return false
	}
	acked, _, err := s.apply(ctx, order.OrderID, func(o entity.Order) (lifecycle.Change, error) {
		return lifecycle.AcknowledgePaidMessage(o), nil
	})
	if err != nil {
		logger.ForOrder(s.logger, order.OrderID).Warn("supplier summary sent but flag not cleared", zap.Error(err))
		return true
	}
	*order = *acked
	return true
}

// ledgerEntryFor snapshots the display fields of a paid order for its payment day.
func ledgerEntryFor(o *entity.Order, loc *time.Location, fallback time.Time) *entity.LedgerEntry {
	paidAt := fallback
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	return &entity.LedgerEntry{
		ID:        uuid.New(),
		Day:       entity.DayOf(paidAt, loc),
		OrderID:   o.OrderID,
		Name:      o.Product,
		Amount:    chargedAmount(o),
		SKU:       o.SKU,
		Sizes:     o.Sizes,
		Technique: o.Technique,
	}
}
