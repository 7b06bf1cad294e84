package seeder

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	repo "github.com/Additional-Code/ordertrack/internal/repository/order"
)

type insertOnlyStore struct {
	repo.Store
	orders map[string]*entity.Order
	err    error
}

func (s *insertOnlyStore) Insert(_ context.Context, o *entity.Order) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.orders[o.OrderID]; ok {
		return repo.ErrAlreadyExists
	}
	s.orders[o.OrderID] = o
	return nil
}

func newSeeder(store repo.Store, now time.Time) *Seeder {
	s := New(store, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestOrdersSeedsBackdatedPendingOrders(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &insertOnlyStore{orders: map[string]*entity.Order{}}

	n, err := newSeeder(store, now).Orders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(samples) {
		t.Fatalf("expected %d inserted, got %d", len(samples), n)
	}

	// Reminders always start at the first step; older samples just catch up faster.
	wantStep := map[string]lifecycle.Reminder{
		"DEV-1000": lifecycle.ReminderNone,
		"DEV-1001": lifecycle.Reminder24h,
		"DEV-1002": lifecycle.Reminder24h,
		"DEV-1003": lifecycle.Reminder24h,
	}
	for id, want := range wantStep {
		o, ok := store.orders[id]
		if !ok {
			t.Fatalf("order %s not seeded", id)
		}
		if o.Status != entity.StatusPendingPayment {
			t.Fatalf("%s: expected pending, got %s", id, o.Status)
		}
		if got := lifecycle.ComputeReminderStep(*o, now).Reminder; got != want {
			t.Fatalf("%s: want reminder %v, got %v", id, want, got)
		}
	}
	if age := now.Sub(store.orders["DEV-1003"].CreatedAt); age != 73*time.Hour {
		t.Fatalf("expected DEV-1003 backdated by 73h, got %s", age)
	}
	if store.orders["DEV-1000"].Sizes != "L" || store.orders["DEV-1002"].Technique != "DTF" {
		t.Fatalf("items not normalized: %+v / %+v", store.orders["DEV-1000"], store.orders["DEV-1002"])
	}
}

func TestOrdersIsRepeatable(t *testing.T) {
	store := &insertOnlyStore{orders: map[string]*entity.Order{}}
	s := newSeeder(store, time.Now().UTC())
	if _, err := s.Orders(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	n, err := s.Orders(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second run: n=%d err=%v", n, err)
	}
}

func TestOrdersStopsOnStoreFailure(t *testing.T) {
	store := &insertOnlyStore{orders: map[string]*entity.Order{}, err: errors.New("db down")}
	if _, err := newSeeder(store, time.Now().UTC()).Orders(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
