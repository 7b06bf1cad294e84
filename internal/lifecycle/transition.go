package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

// Reminder thresholds measured from the order creation time.
const (
	FirstReminderAfter  = 24 * time.Hour
	SecondReminderAfter = 48 * time.Hour
	AutoCancelAfter     = 72 * time.Hour
)

// ReminderDiscount is subtracted from the amount when the second reminder fires.
var ReminderDiscount = decimal.NewFromInt(30)

// Reminder identifies which escalation step a change represents.
type Reminder int

const (
	ReminderNone Reminder = iota
	Reminder24h
	Reminder48h
	Reminder72h
)

func (r Reminder) String() string {
	switch r {
	case Reminder24h:
		return "reminder_24h"
	case Reminder48h:
		return "reminder_48h"
	case Reminder72h:
		return "reminder_72h"
	default:
		return "none"
	}
}

// ReminderStep is the outcome of one scheduler evaluation of an order.
type ReminderStep struct {
	Change
	Reminder Reminder
}

// ComputeReminderStep returns at most one escalation step for a pending order.
// Thresholds are checked in ascending order and the first unsent one that has
// elapsed wins, so an order that is already 80h old still moves one stage per call.
func ComputeReminderStep(o entity.Order, now time.Time) ReminderStep {
	if o.Status != entity.StatusPendingPayment {
		return ReminderStep{}
	}
	elapsed := now.Sub(o.CreatedAt)
	next := o

	switch {
	case !o.Reminder24Sent && elapsed >= FirstReminderAfter:
		next.Reminder24Sent = true
		next.NextMessage = ptr(entity.MessageReminder48h)
		return ReminderStep{
			Change:   newChange(next, entity.ColReminder24Sent, entity.ColNextMessage),
			Reminder: Reminder24h,
		}
	case !o.Reminder48Sent && elapsed >= SecondReminderAfter:
		next.Reminder48Sent = true
		next.DiscountedAmount = decimal.NewNullDecimal(o.Amount.Sub(ReminderDiscount))
		next.NextMessage = ptr(entity.MessageReminder72h)
		return ReminderStep{
			Change:   newChange(next, entity.ColReminder48Sent, entity.ColDiscountedAmount, entity.ColNextMessage),
			Reminder: Reminder48h,
		}
	case !o.Reminder72Sent && elapsed >= AutoCancelAfter:
		next.Reminder72Sent = true
		next.Status = entity.StatusCancelled
		next.NextMessage = nil
		return ReminderStep{
			Change:   newChange(next, entity.ColReminder72Sent, entity.ColStatus, entity.ColNextMessage),
			Reminder: Reminder72h,
		}
	}
	return ReminderStep{}
}

// MarkPaid moves a pending order to paid and silences all reminders.
// On an order that is already paid it returns an empty change so the stored
// state, including paid_at, stays exactly as the first call left it.
func MarkPaid(o entity.Order, now time.Time) (Change, error) {
	switch o.Status {
	case entity.StatusPaid:
		return Change{}, nil
	case entity.StatusPendingPayment:
	default:
		return Change{}, ErrInvalidTransition
	}

	next := o
	next.Status = entity.StatusPaid
	next.PaidAt = ptr(now)
	next.PaidMessagePending = true
	next.Reminder24Sent = true
	next.Reminder48Sent = true
	next.Reminder72Sent = true
	next.NextMessage = nil
	return newChange(next,
		entity.ColStatus,
		entity.ColPaidAt,
		entity.ColPaidMessagePending,
		entity.ColReminder24Sent,
		entity.ColReminder48Sent,
		entity.ColReminder72Sent,
		entity.ColNextMessage,
	), nil
}

// Complete closes a paid order.
func Complete(o entity.Order) (Change, error) {
	switch o.Status {
	case entity.StatusCompleted:
		return Change{}, nil
	case entity.StatusPaid:
	default:
		return Change{}, ErrInvalidTransition
	}
	next := o
	next.Status = entity.StatusCompleted
	return newChange(next, entity.ColStatus), nil
}

// MarkDeleted moves an order of any status to the terminal deleted state.
func MarkDeleted(o entity.Order) Change {
	if o.Status == entity.StatusDeleted {
		return Change{}
	}
	next := o
	next.Status = entity.StatusDeleted
	return newChange(next, entity.ColStatus)
}

// AcknowledgePaidMessage clears the pending supplier summary flag.
func AcknowledgePaidMessage(o entity.Order) Change {
	if !o.PaidMessagePending {
		return Change{}
	}
	next := o
	next.PaidMessagePending = false
	return newChange(next, entity.ColPaidMessagePending)
}
