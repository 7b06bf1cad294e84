// Package seeder loads sample pending orders for local development. The
// samples are backdated so a reminder pass has something to do.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/normalizer"
	repo "github.com/Additional-Code/ordertrack/internal/repository/order"
	ordersvc "github.com/Additional-Code/ordertrack/internal/service/order"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

type sample struct {
	age     time.Duration
	payload string
}

var samples = []sample{
	{age: time.Hour, payload: `{"id": "DEV-1000", "total": "1290.00",
		"billing": {"first_name": "Anna", "last_name": "Petrova", "phone": "+7 900 000-00-00"},
		"line_items": [{"sku": "VJ1", "name": "Varsity jacket", "quantity": 1,
			"meta_data": [{"key": "pa_size", "value": "L"}, {"key": "technique", "value": "embroidery"}]}]}`},
	{age: 25 * time.Hour, payload: `{"id": "DEV-1001", "total": "640",
		"items": [{"sku": "TS-9", "name": "Tee", "qty": 2, "attributes": [{"name": "Size", "option": "M"}]}]}`},
	{age: 49 * time.Hour, payload: `{"id": "DEV-1002", "total": "2100",
		"products": [{"name": "Hoodie", "description": "size: XL; technique: DTF"}]}`},
	{age: 73 * time.Hour, payload: `{"order": {"id": "DEV-1003", "total": "450",
		"line_items": [{"sku": "CAP-1", "name": "Cap"}]}}`},
}

// Seeder inserts sample orders through the order store.
type Seeder struct {
	store  repo.Store
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Seeder.
func New(store repo.Store, logger *zap.Logger) *Seeder {
	return &Seeder{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Orders seeds the sample orders, skipping any that already exist. It
// returns how many were inserted.
func (s *Seeder) Orders(ctx context.Context) (int, error) {
	now := s.now()
	inserted := 0
	for _, smp := range samples {
		order := ordersvc.NewPendingOrder(normalizer.ParseOrder([]byte(smp.payload)), now.Add(-smp.age))
		err := s.store.Insert(ctx, order)
		switch {
		case errors.Is(err, repo.ErrAlreadyExists):
			continue
		case err != nil:
			return inserted, fmt.Errorf("seed order %s: %w", order.OrderID, err)
		}
		inserted++
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("inserted", inserted), zap.Int("samples", len(samples)))
	}
	return inserted, nil
}
