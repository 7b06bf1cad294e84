package lifecycle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func pendingOrder() entity.Order {
	return entity.Order{
		OrderID:   "1001",
		Status:    entity.StatusPendingPayment,
		Amount:    decimal.NewFromInt(500),
		CreatedAt: t0,
		Quantity:  1,
	}
}

func TestComputeReminderStep_Scenario(t *testing.T) {
	o := pendingOrder()

	step := ComputeReminderStep(o, t0.Add(25*time.Hour))
	if step.Reminder != Reminder24h {
		t.Fatalf("expected 24h reminder, got %v", step.Reminder)
	}
	if !reflect.DeepEqual(step.Columns(), []string{entity.ColReminder24Sent, entity.ColNextMessage}) {
		t.Fatalf("unexpected columns %v", step.Columns())
	}
	o = step.Order()
	if !o.Reminder24Sent || o.NextMessage == nil || *o.NextMessage != entity.MessageReminder48h {
		t.Fatalf("24h step not applied: %+v", o)
	}

	step = ComputeReminderStep(o, t0.Add(49*time.Hour))
	if step.Reminder != Reminder48h {
		t.Fatalf("expected 48h reminder, got %v", step.Reminder)
	}
	o = step.Order()
	if !o.Reminder48Sent {
		t.Fatalf("48h flag not set")
	}
	if !o.DiscountedAmount.Valid || !o.DiscountedAmount.Decimal.Equal(decimal.NewFromInt(470)) {
		t.Fatalf("expected discounted amount 470, got %v", o.DiscountedAmount)
	}
	if *o.NextMessage != entity.MessageReminder72h {
		t.Fatalf("expected next message %q, got %q", entity.MessageReminder72h, *o.NextMessage)
	}

	step = ComputeReminderStep(o, t0.Add(73*time.Hour))
	if step.Reminder != Reminder72h {
		t.Fatalf("expected 72h step, got %v", step.Reminder)
	}
	o = step.Order()
	if !o.Reminder72Sent || o.Status != entity.StatusCancelled || o.NextMessage != nil {
		t.Fatalf("72h step not applied: %+v", o)
	}

	if step := ComputeReminderStep(o, t0.Add(200*time.Hour)); !step.Empty() {
		t.Fatalf("cancelled order must not escalate further, got %v", step.Columns())
	}
}

func TestComputeReminderStep_OneStagePerCall(t *testing.T) {
	o := pendingOrder()
	step := ComputeReminderStep(o, t0.Add(80*time.Hour))

	if step.Reminder != Reminder24h {
		t.Fatalf("expected only the 24h stage, got %v", step.Reminder)
	}
	for _, col := range []string{entity.ColReminder48Sent, entity.ColReminder72Sent, entity.ColStatus, entity.ColDiscountedAmount} {
		if step.Touches(col) {
			t.Fatalf("single step must not touch %s", col)
		}
	}
	next := step.Order()
	if next.Reminder48Sent || next.Reminder72Sent || next.Status != entity.StatusPendingPayment {
		t.Fatalf("later stages leaked into first step: %+v", next)
	}
}

func TestComputeReminderStep_BeforeThreshold(t *testing.T) {
	if step := ComputeReminderStep(pendingOrder(), t0.Add(23*time.Hour)); !step.Empty() {
		t.Fatalf("expected no-op before 24h, got %v", step.Columns())
	}
}

func TestComputeReminderStep_FlagsNeverReset(t *testing.T) {
	o := pendingOrder()
	now := t0
	for i := 0; i < 10; i++ {
		now = now.Add(12 * time.Hour)
		before := o
		o = mergeStep(o, ComputeReminderStep(o, now))
		if before.Reminder24Sent && !o.Reminder24Sent ||
			before.Reminder48Sent && !o.Reminder48Sent ||
			before.Reminder72Sent && !o.Reminder72Sent {
			t.Fatalf("reminder flag reset at iteration %d", i)
		}
	}
	if !o.Reminder72Sent || o.Status != entity.StatusCancelled {
		t.Fatalf("expected escalation to finish, got %+v", o)
	}
}

func mergeStep(o entity.Order, step ReminderStep) entity.Order {
	if step.Empty() {
		return o
	}
	return step.Order()
}

func TestMarkPaid_Idempotent(t *testing.T) {
	o := pendingOrder()
	o.NextMessage = ptr(entity.MessageReminder48h)
	paidAt := t0.Add(30 * time.Hour)

	first, err := MarkPaid(o, paidAt)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	once := first.Order()
	if once.Status != entity.StatusPaid || once.PaidAt == nil || !once.PaidAt.Equal(paidAt) {
		t.Fatalf("paid fields not set: %+v", once)
	}
	if !once.Reminder24Sent || !once.Reminder48Sent || !once.Reminder72Sent || once.NextMessage != nil || !once.PaidMessagePending {
		t.Fatalf("paid order must silence reminders: %+v", once)
	}

	second, err := MarkPaid(once, paidAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("second mark paid: %v", err)
	}
	twice := once
	if !second.Empty() {
		twice = second.Order()
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second markPaid changed state:\n%+v\n%+v", once, twice)
	}
}

func TestMarkPaid_InvalidFromCancelled(t *testing.T) {
	o := pendingOrder()
	o.Status = entity.StatusCancelled
	if _, err := MarkPaid(o, t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	o := pendingOrder()
	if _, err := Complete(o); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending order cannot complete, got %v", err)
	}
	o.Status = entity.StatusPaid
	change, err := Complete(o)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if change.Order().Status != entity.StatusCompleted {
		t.Fatalf("expected completed, got %s", change.Order().Status)
	}
	again, err := Complete(change.Order())
	if err != nil || !again.Empty() {
		t.Fatalf("completing twice should be a no-op, got %v %v", again.Columns(), err)
	}
}

func TestMarkDeletedAndAcknowledge(t *testing.T) {
	o := pendingOrder()
	del := MarkDeleted(o)
	if del.Order().Status != entity.StatusDeleted {
		t.Fatalf("expected deleted")
	}
	if !MarkDeleted(del.Order()).Empty() {
		t.Fatalf("deleting twice should be a no-op")
	}

	o.PaidMessagePending = true
	ack := AcknowledgePaidMessage(o)
	if ack.Order().PaidMessagePending || !ack.Touches(entity.ColPaidMessagePending) {
		t.Fatalf("acknowledge did not clear flag")
	}
}
