package order

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/cache"
	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/gateway/notify"
	"github.com/Additional-Code/ordertrack/internal/messaging"
	repo "github.com/Additional-Code/ordertrack/internal/repository/order"
)

// memoryStore is an in-memory repo.Store with the same version semantics as
// the bun repository.
type memoryStore struct {
	mu      sync.Mutex
	orders  map[string]entity.Order
	ledger  []entity.LedgerEntry
	patches int

	// beforePatch runs once, before the next Patch, to simulate a concurrent writer.
	beforePatch func(orders map[string]entity.Order)
	insertErr   error
	ledgerErr   error
}

func newMemoryStore(orders ...entity.Order) *memoryStore {
	m := &memoryStore{orders: make(map[string]entity.Order)}
	for _, o := range orders {
		if o.Version == 0 {
			o.Version = 1
		}
		m.orders[o.OrderID] = o
	}
	return m
}

func (m *memoryStore) get(id string) entity.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memoryStore) GetByOrderID(_ context.Context, id string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &o, nil
}

func (m *memoryStore) Insert(_ context.Context, o *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.orders[o.OrderID]; ok {
		return repo.ErrAlreadyExists
	}
	if o.Version == 0 {
		o.Version = 1
	}
	m.orders[o.OrderID] = *o
	return nil
}

func (m *memoryStore) Patch(_ context.Context, o *entity.Order, expected int64, columns ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hook := m.beforePatch; hook != nil {
		m.beforePatch = nil
		hook(m.orders)
	}
	current, ok := m.orders[o.OrderID]
	if !ok {
		return repo.ErrNotFound
	}
	if current.Version != expected {
		return repo.ErrVersionConflict
	}
	m.patches++
	o.Version = expected + 1
	// Only the listed columns are written; everything else keeps the stored value.
	next := current
	for _, c := range columns {
		copyColumn(&next, o, c)
	}
	next.Version = o.Version
	m.orders[o.OrderID] = next
	return nil
}

func (m *memoryStore) Delete(_ context.Context, f repo.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, o := range m.orders {
		if (f.Status == "" || o.Status == f.Status) && (len(f.OrderIDs) == 0 || slices.Contains(f.OrderIDs, id)) {
			delete(m.orders, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) ListByStatus(_ context.Context, status entity.Status) ([]entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryStore) ListCreatedBetween(_ context.Context, from, to time.Time) ([]entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Order
	for _, o := range m.orders {
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b entity.Order) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *memoryStore) ListLedgerByDay(_ context.Context, day string) ([]entity.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.LedgerEntry
	for _, e := range m.ledger {
		if e.Day == day {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) InsertLedgerEntry(_ context.Context, e *entity.LedgerEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledgerErr != nil {
		err := m.ledgerErr
		m.ledgerErr = nil
		return false, err
	}
	for _, existing := range m.ledger {
		if existing.Day == e.Day && existing.OrderID == e.OrderID {
			return false, nil
		}
	}
	m.ledger = append(m.ledger, *e)
	return true, nil
}

func (m *memoryStore) DeleteLedgerByDay(_ context.Context, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.ledger[:0]
	n := 0
	for _, e := range m.ledger {
		if e.Day == day {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.ledger = kept
	return n, nil
}

func copyColumn(dst, src *entity.Order, column string) {
	switch column {
	case entity.ColStatus:
		dst.Status = src.Status
	case entity.ColPaidAt:
		dst.PaidAt = src.PaidAt
	case entity.ColAmount:
		dst.Amount = src.Amount
	case entity.ColDiscountedAmount:
		dst.DiscountedAmount = src.DiscountedAmount
	case entity.ColNextMessage:
		dst.NextMessage = src.NextMessage
	case entity.ColPaidMessagePending:
		dst.PaidMessagePending = src.PaidMessagePending
	case entity.ColReminder24Sent:
		dst.Reminder24Sent = src.Reminder24Sent
	case entity.ColReminder48Sent:
		dst.Reminder48Sent = src.Reminder48Sent
	case entity.ColReminder72Sent:
		dst.Reminder72Sent = src.Reminder72Sent
	case entity.ColHiddenToday:
		dst.HiddenToday = src.HiddenToday
	case entity.ColPreviousStatus:
		dst.PreviousStatus = src.PreviousStatus
	case entity.ColPreviousPaidAt:
		dst.PreviousPaidAt = src.PreviousPaidAt
	case entity.ColPreviousAmount:
		dst.PreviousAmount = src.PreviousAmount
	case entity.ColPreviousNextMessage:
		dst.PreviousNextMessage = src.PreviousNextMessage
	case entity.ColPreviousReminder24Sent:
		dst.PreviousReminder24Sent = src.PreviousReminder24Sent
	case entity.ColPreviousReminder48Sent:
		dst.PreviousReminder48Sent = src.PreviousReminder48Sent
	case entity.ColPreviousReminder72Sent:
		dst.PreviousReminder72Sent = src.PreviousReminder72Sent
	default:
		panic("unknown column " + column)
	}
}

type statusCall struct {
	OrderID string
	Status  entity.Status
}

type fakeCommerce struct {
	mu    sync.Mutex
	calls []statusCall
	err   error
}

func (f *fakeCommerce) SetOrderStatus(_ context.Context, id string, status entity.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, statusCall{OrderID: id, Status: status})
	return f.err
}

type sentMessage struct {
	Channel string
	Text    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[channel] {
		return context.DeadlineExceeded
	}
	f.sent = append(f.sent, sentMessage{Channel: channel, Text: text})
	return nil
}

func (f *fakeSender) to(channel string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.Channel == channel {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, _ []byte, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, value)
	return nil
}

func (f *fakePublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakePublisher) Topic() string       { return "orders.inbound" }
func (f *fakePublisher) EventsTopic() string { return "orders.lifecycle" }

type harness struct {
	svc       *Service
	store     *memoryStore
	commerce  *fakeCommerce
	sender    *fakeSender
	publisher *fakePublisher
	now       time.Time
}

func newHarness(orders ...entity.Order) *harness {
	h := &harness{
		store:     newMemoryStore(orders...),
		commerce:  &fakeCommerce{},
		sender:    &fakeSender{fail: map[string]bool{}},
		publisher: &fakePublisher{},
		now:       time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.Config{GatewayTimeout: time.Second}
	cfg.Messaging.Enabled = true
	h.svc = NewService(Params{
		Store:     h.store,
		Cache:     cache.NoopStore(),
		Commerce:  h.commerce,
		Notifier:  h.sender,
		Channels:  notify.Channels{Operator: "ops", Supplier: "supplier"},
		Publisher: h.publisher,
		Config:    cfg,
		Logger:    zap.NewNop(),
	})
	h.svc.now = func() time.Time { return h.now }
	return h
}
