package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/cache"
	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/gateway/commerce"
	"github.com/Additional-Code/ordertrack/internal/gateway/notify"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
	"github.com/Additional-Code/ordertrack/internal/logger"
	"github.com/Additional-Code/ordertrack/internal/messaging"
	repo "github.com/Additional-Code/ordertrack/internal/repository/order"
	"github.com/Additional-Code/ordertrack/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/ordertrack/service/order")

// Service encapsulates the order lifecycle: ingestion, operator commands, the
// payment finalizer and reminder application.
type Service struct {
	store          repo.Store
	cache          cache.Store
	cacheTTL       time.Duration
	commerce       commerce.Client
	notifier       notify.Sender
	channels       notify.Channels
	publisher      messaging.Client
	publishEnabled bool
	logger         *zap.Logger
	location       *time.Location
	gatewayTimeout time.Duration
	now            func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     repo.Store
	Cache     cache.Store
	Commerce  commerce.Client
	Notifier  notify.Sender
	Channels  notify.Channels
	Publisher messaging.Client
	Config    config.Config
	Logger    *zap.Logger
}

// Module provides the order service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	loc := p.Config.Business.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := p.Config.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		store:          p.Store,
		cache:          p.Cache,
		cacheTTL:       p.Config.Cache.DefaultTTL,
		commerce:       p.Commerce,
		notifier:       p.Notifier,
		channels:       p.Channels,
		publisher:      p.Publisher,
		publishEnabled: p.Config.Messaging.Enabled,
		logger:         p.Logger,
		location:       loc,
		gatewayTimeout: timeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Location returns the operating timezone used for day boundaries.
func (s *Service) Location() *time.Location {
	return s.location
}

// Get retrieves an order by its external id, consulting cache when available.
func (s *Service) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	if order, err := s.getFromCache(ctx, orderID); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("order_id", orderID), zap.Error(err))
	}

	order, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, s.translate(span, orderID, err)
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("order_id", orderID), zap.Error(err))
	}
	return order, nil
}

// apply loads the order, computes a change and patches it. A lost
// compare-and-swap race is retried once against the fresh row.
func (s *Service) apply(ctx context.Context, orderID string, compute func(entity.Order) (lifecycle.Change, error)) (*entity.Order, lifecycle.Change, error) {
	for attempt := 0; ; attempt++ {
		current, err := s.store.GetByOrderID(ctx, orderID)
		if err != nil {
			return nil, lifecycle.Change{}, err
		}

		change, err := compute(*current)
		if err != nil {
			return current, lifecycle.Change{}, err
		}
		if change.Empty() {
			return current, change, nil
		}

		next := change.Order()
		err = s.store.Patch(ctx, &next, current.Version, change.Columns()...)
		if errors.Is(err, repo.ErrVersionConflict) && attempt == 0 {
			logger.ForOrder(s.logger, orderID).Info("order changed concurrently; retrying")
			continue
		}
		if err != nil {
			return nil, lifecycle.Change{}, err
		}

		s.invalidate(ctx, orderID)
		return &next, change, nil
	}
}

// translate maps repository and lifecycle errors onto application errors.
func (s *Service) translate(span trace.Span, orderID string, err error) error {
	var appErr *errorbank.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repo.ErrNotFound):
		span.SetStatus(codes.Error, "not found")
		return errorbank.NotFound("order not found", errorbank.WithDetail("order_id", orderID))
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		span.SetStatus(codes.Error, "invalid transition")
		return errorbank.Unprocessable(err.Error(), errorbank.WithDetail("order_id", orderID))
	case errors.Is(err, lifecycle.ErrSnapshotPending):
		span.SetStatus(codes.Error, "snapshot pending")
		return errorbank.Conflict(err.Error(), errorbank.WithDetail("order_id", orderID))
	case errors.Is(err, repo.ErrVersionConflict):
		span.SetStatus(codes.Error, "version conflict")
		return errorbank.Conflict("order was modified concurrently, try again", errorbank.WithDetail("order_id", orderID))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		span.SetStatus(codes.Error, "interrupted")
		return errorbank.Unavailable("order store did not respond in time", errorbank.WithCause(err))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to process order", errorbank.WithCause(err))
	}
}

func (s *Service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.gatewayTimeout)
}

// mirrorStatus pushes the local status to the storefront. Failures are logged only.
func (s *Service) mirrorStatus(ctx context.Context, order *entity.Order) {
	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()
	if err := s.commerce.SetOrderStatus(gctx, order.OrderID, order.Status); err != nil {
		logger.ForOrder(s.logger, order.OrderID).Warn("commerce status update failed",
			zap.String("status", string(order.Status)), zap.Error(err))
	}
}

// send delivers text to channel and reports whether it was accepted.
func (s *Service) send(ctx context.Context, orderID, channel, text string) bool {
	if channel == "" {
		return false
	}
	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()
	if err := s.notifier.Send(gctx, channel, text); err != nil {
		logger.ForOrder(s.logger, orderID).Warn("notification failed", zap.String("channel", channel), zap.Error(err))
		return false
	}
	return true
}

func (s *Service) publish(ctx context.Context, eventType string, order *entity.Order, reminder lifecycle.Reminder) {
	if !s.publishEnabled || s.publisher == nil {
		return
	}
	event := messaging.Event{
		Type:       eventType,
		OrderID:    order.OrderID,
		Status:     string(order.Status),
		OccurredAt: s.now(),
	}
	if reminder != lifecycle.ReminderNone {
		event.Reminder = reminder.String()
	}
	if err := messaging.PublishEvent(ctx, s.publisher, event); err != nil {
		logger.ForOrder(s.logger, order.OrderID).Error("publish order event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *Service) cacheKey(orderID string) string {
	return fmt.Sprintf("orders:%s", orderID)
}

func (s *Service) getFromCache(ctx context.Context, orderID string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(orderID))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.OrderID), bytes, s.cacheTTL)
}

func (s *Service) invalidate(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(orderID)); err != nil {
		s.logger.Warn("orders cache invalidate failed", zap.String("order_id", orderID), zap.Error(err))
	}
}
