package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/ordertrack/internal/database"
	"github.com/Additional-Code/ordertrack/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/ordertrack/repository/order")

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyExists is returned when inserting an order id that is already stored.
	ErrAlreadyExists = errors.New("order already exists")
	// ErrVersionConflict is returned when a patch loses a compare-and-swap race.
	ErrVersionConflict = errors.New("order version conflict")
	// ErrEmptyFilter guards Delete against wiping the whole table.
	ErrEmptyFilter = errors.New("delete filter is empty")
)

// Filter selects orders for bulk deletion. At least one field must be set.
type Filter struct {
	Status   entity.Status
	OrderIDs []string
}

func (f Filter) empty() bool {
	return f.Status == "" && len(f.OrderIDs) == 0
}

// Store is the persistence contract for orders and the paid-items ledger.
type Store interface {
	GetByOrderID(ctx context.Context, orderID string) (*entity.Order, error)
	Insert(ctx context.Context, order *entity.Order) error
	Patch(ctx context.Context, order *entity.Order, expectedVersion int64, columns ...string) error
	Delete(ctx context.Context, filter Filter) (int, error)
	ListByStatus(ctx context.Context, status entity.Status) ([]entity.Order, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]entity.Order, error)
	ListLedgerByDay(ctx context.Context, day string) ([]entity.LedgerEntry, error)
	InsertLedgerEntry(ctx context.Context, entry *entity.LedgerEntry) (bool, error)
	DeleteLedgerByDay(ctx context.Context, day string) (int, error)
}

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
	now    func() time.Time
}

var _ Store = (*Repository)(nil)

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetByOrderID fetches an order by its external id. Reads go to the writer so
// that a read-modify-patch cycle never sees a lagging replica.
func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByOrderID", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order := new(entity.Order)
	err := r.writer.NewSelect().Model(order).Where("order_id = ?", orderID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, spanFail(span, "select failed", err)
	}
	return order, nil
}

// Insert persists a new order. An existing order id yields ErrAlreadyExists.
func (r *Repository) Insert(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Insert", trace.WithAttributes(attribute.String("order.id", order.OrderID)))
	defer span.End()

	now := r.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.Version == 0 {
		order.Version = 1
	}

	q := r.writer.NewInsert().Model(order)
	q = r.ignoreDuplicates(q, "order_id")
	res, err := q.Exec(ctx)
	if err != nil {
		return spanFail(span, "insert failed", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Error, "duplicate")
		return ErrAlreadyExists
	}
	return nil
}

// Patch writes only the given columns, guarded by expectedVersion. On success
// order.Version and order.UpdatedAt carry the stored values.
func (r *Repository) Patch(ctx context.Context, order *entity.Order, expectedVersion int64, columns ...string) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Patch", trace.WithAttributes(
		attribute.String("order.id", order.OrderID),
		attribute.Int64("order.version", expectedVersion),
		attribute.StringSlice("order.columns", columns),
	))
	defer span.End()

	if len(columns) == 0 {
		return nil
	}

	prevVersion, prevUpdated := order.Version, order.UpdatedAt
	order.Version = expectedVersion + 1
	order.UpdatedAt = r.now()

	cols := append(append(make([]string, 0, len(columns)+2), columns...), entity.ColVersion, entity.ColUpdatedAt)
	res, err := r.writer.NewUpdate().
		Model(order).
		Column(cols...).
		Where("order_id = ?", order.OrderID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		order.Version, order.UpdatedAt = prevVersion, prevUpdated
		return spanFail(span, "update failed", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		order.Version, order.UpdatedAt = prevVersion, prevUpdated
		return spanFail(span, "rows affected", err)
	}
	if n > 0 {
		return nil
	}

	order.Version, order.UpdatedAt = prevVersion, prevUpdated
	exists, err := r.writer.NewSelect().Model((*entity.Order)(nil)).Where("order_id = ?", order.OrderID).Exists(ctx)
	if err != nil {
		return spanFail(span, "exists failed", err)
	}
	if !exists {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	span.SetStatus(codes.Error, "version conflict")
	return ErrVersionConflict
}

// Delete removes orders matching filter and returns the number of rows removed.
func (r *Repository) Delete(ctx context.Context, filter Filter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(
		attribute.String("order.status", string(filter.Status)),
		attribute.Int("order.ids", len(filter.OrderIDs)),
	))
	defer span.End()

	if filter.empty() {
		return 0, ErrEmptyFilter
	}

	q := r.writer.NewDelete().Model((*entity.Order)(nil))
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if len(filter.OrderIDs) > 0 {
		q = q.Where("order_id IN (?)", bun.In(filter.OrderIDs))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, spanFail(span, "delete failed", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListByStatus returns every order in the given status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status entity.Status) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByStatus", trace.WithAttributes(attribute.String("order.status", string(status))))
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().Model(&orders).Where("status = ?", status).OrderExpr("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, spanFail(span, "select failed", err)
	}
	return orders, nil
}

// ListCreatedBetween returns orders created in [from, to), oldest first.
func (r *Repository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListCreatedBetween")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().
		Model(&orders).
		Where("created_at >= ?", from.UTC()).
		Where("created_at < ?", to.UTC()).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, spanFail(span, "select failed", err)
	}
	return orders, nil
}

// ListLedgerByDay returns the ledger entries recorded for day (YYYY-MM-DD).
func (r *Repository) ListLedgerByDay(ctx context.Context, day string) ([]entity.LedgerEntry, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListLedgerByDay", trace.WithAttributes(attribute.String("ledger.day", day)))
	defer span.End()

	var entries []entity.LedgerEntry
	err := r.reader.NewSelect().Model(&entries).Where("day = ?", day).OrderExpr("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, spanFail(span, "select failed", err)
	}
	return entries, nil
}

// InsertLedgerEntry appends entry unless one already exists for the same day
// and order. It reports whether a row was written.
func (r *Repository) InsertLedgerEntry(ctx context.Context, entry *entity.LedgerEntry) (bool, error) {
	if entry == nil {
		return false, errors.New("nil ledger entry")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.InsertLedgerEntry", trace.WithAttributes(
		attribute.String("ledger.day", entry.Day),
		attribute.String("order.id", entry.OrderID),
	))
	defer span.End()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	q := r.writer.NewInsert().Model(entry)
	q = r.ignoreDuplicates(q, "day, order_id")
	res, err := q.Exec(ctx)
	if err != nil {
		return false, spanFail(span, "insert failed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, spanFail(span, "rows affected", err)
	}
	return n > 0, nil
}

// DeleteLedgerByDay removes every ledger entry of day.
func (r *Repository) DeleteLedgerByDay(ctx context.Context, day string) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteLedgerByDay", trace.WithAttributes(attribute.String("ledger.day", day)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.LedgerEntry)(nil)).Where("day = ?", day).Exec(ctx)
	if err != nil {
		return 0, spanFail(span, "delete failed", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ignoreDuplicates turns a unique-key collision on target into a no-op insert.
func (r *Repository) ignoreDuplicates(q *bun.InsertQuery, target string) *bun.InsertQuery {
	if r.writer.Dialect().Name() == dialect.MySQL {
		return q.Ignore()
	}
	return q.On(fmt.Sprintf("CONFLICT (%s) DO NOTHING", target))
}

func spanFail(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}
