package order

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/internal/database"
	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/migration"
)

var created = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

// newSQLiteRepository migrates a fresh on-disk SQLite database and returns a
// repository over it.
func newSQLiteRepository(t *testing.T) *Repository {
	t.Helper()

	var cfg config.Config
	cfg.Database.Driver = "sqlite"
	cfg.Database.WriterDSN = filepath.Join(t.TempDir(), "orders.db")

	conns, err := database.Open(cfg.Database, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conns.Close() })

	m, err := migration.New(cfg, conns, zap.NewNop())
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := m.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepository(conns)
	repo.now = func() time.Time { return created.Add(time.Hour) }
	return repo
}

func newOrder(id string) *entity.Order {
	return &entity.Order{
		OrderID:   id,
		Status:    entity.StatusPendingPayment,
		Amount:    decimal.RequireFromString("1290.50"),
		Quantity:  2,
		Items:     []entity.OrderItem{{SKU: "TS-1", Name: "Tee", Quantity: 2, Size: "L"}},
		CreatedAt: created,
	}
}

func TestInsertAndGet(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, newOrder("1001")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.GetByOrderID(ctx, "1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 1 || got.Status != entity.StatusPendingPayment {
		t.Fatalf("unexpected order %+v", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("1290.5")) {
		t.Fatalf("unexpected amount %s", got.Amount)
	}
	if len(got.Items) != 1 || got.Items[0].Size != "L" {
		t.Fatalf("items not round-tripped: %+v", got.Items)
	}

	if _, err := repo.GetByOrderID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, newOrder("1002")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Insert(ctx, newOrder("1002")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPatchIsGuardedByVersion(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, newOrder("1003")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Two writers read the same version; only the first patch lands.
	first, _ := repo.GetByOrderID(ctx, "1003")
	second, _ := repo.GetByOrderID(ctx, "1003")

	first.Reminder24Sent = true
	if err := repo.Patch(ctx, first, first.Version, entity.ColReminder24Sent); err != nil {
		t.Fatalf("first patch: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version 2 after patch, got %d", first.Version)
	}

	second.Status = entity.StatusPaid
	err := repo.Patch(ctx, second, second.Version, entity.ColStatus)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if second.Version != 1 {
		t.Fatalf("a lost patch must keep the caller's version, got %d", second.Version)
	}

	stored, _ := repo.GetByOrderID(ctx, "1003")
	if stored.Status != entity.StatusPendingPayment || !stored.Reminder24Sent || stored.Version != 2 {
		t.Fatalf("unexpected stored order %+v", stored)
	}
}

func TestPatchWritesOnlyNamedColumns(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, newOrder("1004")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	o, _ := repo.GetByOrderID(ctx, "1004")
	o.HiddenToday = true
	o.Customer = "not written"
	if err := repo.Patch(ctx, o, o.Version, entity.ColHiddenToday); err != nil {
		t.Fatalf("patch: %v", err)
	}

	stored, _ := repo.GetByOrderID(ctx, "1004")
	if !stored.HiddenToday || stored.Customer != "" {
		t.Fatalf("unexpected stored order %+v", stored)
	}
}

func TestPatchMissingOrder(t *testing.T) {
	repo := newSQLiteRepository(t)

	err := repo.Patch(context.Background(), newOrder("ghost"), 1, entity.ColStatus)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerOneEntryPerDayAndOrder(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	entry := func(day, orderID string) *entity.LedgerEntry {
		return &entity.LedgerEntry{
			ID:      uuid.New(),
			Day:     day,
			OrderID: orderID,
			Name:    "Tee",
			Amount:  decimal.NewFromInt(1290),
		}
	}

	written, err := repo.InsertLedgerEntry(ctx, entry("2025-03-04", "1005"))
	if err != nil || !written {
		t.Fatalf("first entry: written=%v err=%v", written, err)
	}
	written, err = repo.InsertLedgerEntry(ctx, entry("2025-03-04", "1005"))
	if err != nil || written {
		t.Fatalf("duplicate entry: written=%v err=%v", written, err)
	}
	written, err = repo.InsertLedgerEntry(ctx, entry("2025-03-05", "1005"))
	if err != nil || !written {
		t.Fatalf("next day entry: written=%v err=%v", written, err)
	}

	entries, err := repo.ListLedgerByDay(ctx, "2025-03-04")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one entry, got %d (%v)", len(entries), err)
	}

	n, err := repo.DeleteLedgerByDay(ctx, "2025-03-04")
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	if left, _ := repo.ListLedgerByDay(ctx, "2025-03-05"); len(left) != 1 {
		t.Fatalf("other days must survive cleanup, got %d", len(left))
	}
}

func TestDeleteByFilter(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	if _, err := repo.Delete(ctx, Filter{}); !errors.Is(err, ErrEmptyFilter) {
		t.Fatalf("expected ErrEmptyFilter, got %v", err)
	}

	gone := newOrder("1006")
	gone.Status = entity.StatusDeleted
	for _, o := range []*entity.Order{newOrder("1007"), gone} {
		if err := repo.Insert(ctx, o); err != nil {
			t.Fatalf("insert %s: %v", o.OrderID, err)
		}
	}

	n, err := repo.Delete(ctx, Filter{Status: entity.StatusDeleted})
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	pending, err := repo.ListByStatus(ctx, entity.StatusPendingPayment)
	if err != nil || len(pending) != 1 || pending[0].OrderID != "1007" {
		t.Fatalf("unexpected survivors %+v (%v)", pending, err)
	}
}
