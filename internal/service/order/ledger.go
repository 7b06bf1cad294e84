package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	repo "github.com/Additional-Code/ordertrack/internal/repository/order"
	"github.com/Additional-Code/ordertrack/pkg/errorbank"
)

// LedgerDay is the ledger of one day with its total.
type LedgerDay struct {
	Day     string               `json:"day"`
	Entries []entity.LedgerEntry `json:"entries"`
	Total   decimal.Decimal      `json:"total"`
}

// CleanupResult reports what a confirmed cleanup removed.
type CleanupResult struct {
	Day            string `json:"day"`
	EntriesDeleted int    `json:"entries_deleted"`
	OrdersDeleted  int    `json:"orders_deleted"`
}

// Today returns the current day in the operating timezone.
func (s *Service) Today() string {
	return entity.DayOf(s.now(), s.location)
}

// ListToday returns orders created today that are not hidden or deleted.
func (s *Service) ListToday(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListToday")
	defer span.End()

	local := s.now().In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	orders, err := s.store.ListCreatedBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, s.translate(span, "", err)
	}

	visible := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		if o.HiddenToday || o.Status == entity.StatusDeleted {
			continue
		}
		visible = append(visible, o)
	}
	return visible, nil
}

// LedgerByDay returns the ledger for day (YYYY-MM-DD).
func (s *Service) LedgerByDay(ctx context.Context, day string) (*LedgerDay, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.LedgerByDay", trace.WithAttributes(attribute.String("ledger.day", day)))
	defer span.End()

	if _, err := time.Parse(entity.DayLayout, day); err != nil {
		return nil, errorbank.BadRequest("day must be formatted as YYYY-MM-DD", errorbank.WithDetail("day", day))
	}

	entries, err := s.store.ListLedgerByDay(ctx, day)
	if err != nil {
		return nil, s.translate(span, "", err)
	}
	if entries == nil {
		entries = []entity.LedgerEntry{}
	}

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return &LedgerDay{Day: day, Entries: entries, Total: total}, nil
}

// CleanupPreview shows what CleanupConfirm would delete.
func (s *Service) CleanupPreview(ctx context.Context) (*LedgerDay, error) {
	return s.LedgerByDay(ctx, s.Today())
}

// CleanupConfirm marks every order in today's ledger as deleted and then
// removes today's ledger entries.
func (s *Service) CleanupConfirm(ctx context.Context) (*CleanupResult, error) {
	day := s.Today()
	ctx, span := serviceTracer.Start(ctx, "OrderService.CleanupConfirm", trace.WithAttributes(attribute.String("ledger.day", day)))
	defer span.End()

	entries, err := s.store.ListLedgerByDay(ctx, day)
	if err != nil {
		return nil, s.translate(span, "", err)
	}

	res := &CleanupResult{Day: day}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.OrderID]; ok {
			continue
		}
		seen[e.OrderID] = struct{}{}

		_, change, err := s.apply(ctx, e.OrderID, func(o entity.Order) (lifecycle.Change, error) {
			return lifecycle.MarkDeleted(o), nil
		})
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, s.translate(span, e.OrderID, err)
		}
		if !change.Empty() {
			res.OrdersDeleted++
		}
	}

	n, err := s.store.DeleteLedgerByDay(ctx, day)
	if err != nil {
		return nil, s.translate(span, "", err)
	}
	res.EntriesDeleted = n

	s.logger.Info("ledger cleaned up",
		zap.String("day", day),
		zap.Int("entries", res.EntriesDeleted),
		zap.Int("orders", res.OrdersDeleted),
	)
	return res, nil
}

// PurgeDeleted removes rows already in the deleted state.
func (s *Service) PurgeDeleted(ctx context.Context) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.PurgeDeleted")
	defer span.End()

	n, err := s.store.Delete(ctx, repo.Filter{Status: entity.StatusDeleted})
	if err != nil {
		return 0, s.translate(span, "", err)
	}
	s.logger.Info("deleted orders purged", zap.Int("count", n))
	return n, nil
}
