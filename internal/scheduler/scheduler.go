// Package scheduler runs the reminder pass over pending orders. Passes are
// triggered externally (HTTP, CLI) or by the optional worker ticker.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/ordertrack/internal/cache"
	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	repo "github.com/Additional-Code/ordertrack/internal/repository/order"
	orderservice "github.com/Additional-Code/ordertrack/internal/service/order"
)

const lockKey = "scheduler:reminders:lock"

var (
	tracer = otel.Tracer("github.com/Additional-Code/ordertrack/scheduler")
	meter  = otel.Meter("github.com/Additional-Code/ordertrack/scheduler")
)

// Lister loads the orders a pass walks over.
type Lister interface {
	ListByStatus(ctx context.Context, status entity.Status) ([]entity.Order, error)
}

// Advancer applies one reminder step to an order.
type Advancer interface {
	AdvanceReminder(ctx context.Context, order entity.Order, now time.Time) (lifecycle.Reminder, error)
}

// Result summarizes one pass.
type Result struct {
	Scanned   int  `json:"scanned"`
	Updated   int  `json:"updated"`
	Conflicts int  `json:"conflicts"`
	Failed    int  `json:"failed"`
	Skipped   bool `json:"skipped"`
}

// Scheduler runs reminder passes.
type Scheduler struct {
	orders      Lister
	advancer    Advancer
	locks       cache.Store
	logger      *zap.Logger
	concurrency int
	lockTTL     time.Duration
	interval    time.Duration
	now         func() time.Time

	applied metric.Int64Counter
	failed  metric.Int64Counter
}

// Params defines dependencies for constructing Scheduler.
type Params struct {
	fx.In

	Store   repo.Store
	Service *orderservice.Service
	Cache   cache.Store
	Config  config.Config
	Logger  *zap.Logger
}

// Module provides the scheduler to Fx.
var Module = fx.Provide(NewFromParams)

// NewFromParams adapts the Fx dependency set to New.
func NewFromParams(p Params) (*Scheduler, error) {
	return New(p.Store, p.Service, p.Cache, p.Config.Scheduler, p.Logger)
}

// New builds a scheduler.
func New(orders Lister, advancer Advancer, locks cache.Store, cfg config.Scheduler, logger *zap.Logger) (*Scheduler, error) {
	applied, err := meter.Int64Counter("ordertrack.reminders.applied",
		metric.WithDescription("Reminder steps applied to pending orders"))
	if err != nil {
		return nil, fmt.Errorf("reminders counter: %w", err)
	}
	failed, err := meter.Int64Counter("ordertrack.reminders.failed",
		metric.WithDescription("Reminder steps that could not be applied"))
	if err != nil {
		return nil, fmt.Errorf("failures counter: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		orders:      orders,
		advancer:    advancer,
		locks:       locks,
		logger:      logger.Named("scheduler"),
		concurrency: concurrency,
		lockTTL:     cfg.LockTTL,
		interval:    cfg.Interval,
		now:         func() time.Time { return time.Now().UTC() },
		applied:     applied,
		failed:      failed,
	}, nil
}

// Run performs one pass. Overlapping passes collapse: if another pass holds
// the lock the call returns Skipped without touching any order. Per-order
// failures are counted and logged; a failure to list orders or a cancelled
// ctx is returned.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Scheduler.Run")
	defer span.End()

	if s.locks != nil {
		token, acquired, err := s.locks.Lock(ctx, lockKey, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("tick lock unavailable; running unguarded", zap.Error(err))
		case !acquired:
			s.logger.Info("tick already in progress; skipped")
			span.SetAttributes(attribute.Bool("scheduler.skipped", true))
			return Result{Skipped: true}, nil
		default:
			defer s.release(token)
		}
	}

	orders, err := s.orders.ListByStatus(ctx, entity.StatusPendingPayment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return Result{}, fmt.Errorf("list pending orders: %w", err)
	}

	now := s.now()
	var updated, conflicts, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, order := range orders {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reminder, err := s.advancer.AdvanceReminder(ctx, order, now)
			switch {
			case errors.Is(err, repo.ErrVersionConflict):
				conflicts.Add(1)
				s.logger.Info("order changed during tick; left for next pass", zap.String("order_id", order.OrderID))
			case err != nil:
				failed.Add(1)
				s.failed.Add(ctx, 1)
				s.logger.Warn("reminder step failed", zap.String("order_id", order.OrderID), zap.Error(err))
			case reminder != lifecycle.ReminderNone:
				updated.Add(1)
				s.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("reminder", reminder.String())))
			}
			return nil
		})
	}
	// Per-order failures are counted above; only cancellation reaches Wait.
	waitErr := g.Wait()

	res := Result{
		Scanned:   len(orders),
		Updated:   int(updated.Load()),
		Conflicts: int(conflicts.Load()),
		Failed:    int(failed.Load()),
	}
	if waitErr != nil {
		span.RecordError(waitErr)
		span.SetStatus(codes.Error, "interrupted")
		s.logger.Warn("tick interrupted", zap.Int("updated", res.Updated), zap.Error(waitErr))
		return res, fmt.Errorf("reminder pass interrupted: %w", waitErr)
	}
	span.SetAttributes(
		attribute.Int("scheduler.scanned", res.Scanned),
		attribute.Int("scheduler.updated", res.Updated),
		attribute.Int("scheduler.failed", res.Failed),
	)
	s.logger.Info("tick finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("updated", res.Updated),
		zap.Int("conflicts", res.Conflicts),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// Loop runs a pass every configured interval until ctx is done. With no
// interval configured it returns immediately.
func (s *Scheduler) Loop(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("scheduled tick failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.locks.Unlock(ctx, lockKey, token); err != nil {
		s.logger.Warn("tick lock release failed", zap.Error(err))
	}
}
