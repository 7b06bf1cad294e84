package lifecycle

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

var snapshotColumns = []string{
	entity.ColPreviousStatus,
	entity.ColPreviousPaidAt,
	entity.ColPreviousAmount,
	entity.ColPreviousNextMessage,
	entity.ColPreviousReminder24Sent,
	entity.ColPreviousReminder48Sent,
	entity.ColPreviousReminder72Sent,
}

var liveColumns = []string{
	entity.ColStatus,
	entity.ColPaidAt,
	entity.ColAmount,
	entity.ColNextMessage,
	entity.ColReminder24Sent,
	entity.ColReminder48Sent,
	entity.ColReminder72Sent,
}

// CancelFull snapshots the mutable fields into previous_* and cancels the order.
// A second full cancel before restore is rejected so the first snapshot survives.
func CancelFull(o entity.Order) (Change, error) {
	if o.Status.Terminal() {
		return Change{}, ErrInvalidTransition
	}
	if o.HasSnapshot() {
		return Change{}, ErrSnapshotPending
	}

	next := o
	next.PreviousStatus = ptr(o.Status)
	next.PreviousPaidAt = clonePtr(o.PaidAt)
	next.PreviousAmount = decimal.NewNullDecimal(o.Amount)
	next.PreviousNextMessage = clonePtr(o.NextMessage)
	next.PreviousReminder24Sent = ptr(o.Reminder24Sent)
	next.PreviousReminder48Sent = ptr(o.Reminder48Sent)
	next.PreviousReminder72Sent = ptr(o.Reminder72Sent)

	next.Status = entity.StatusCancelled
	next.NextMessage = nil
	next.Reminder24Sent = true
	next.Reminder48Sent = true
	next.Reminder72Sent = true
	next.HiddenToday = true

	cols := append(slices.Concat(snapshotColumns,
		[]string{entity.ColStatus, entity.ColNextMessage, entity.ColReminder24Sent, entity.ColReminder48Sent, entity.ColReminder72Sent}),
		entity.ColHiddenToday)
	return newChange(next, cols...), nil
}

// Restore copies the snapshot back onto the live fields and clears it.
// The boolean is false when there is nothing to restore; the change is then empty.
func Restore(o entity.Order) (Change, bool) {
	if !o.HasSnapshot() {
		return Change{}, false
	}

	next := o
	next.Status = *o.PreviousStatus
	next.PaidAt = clonePtr(o.PreviousPaidAt)
	if o.PreviousAmount.Valid {
		next.Amount = o.PreviousAmount.Decimal
	}
	next.NextMessage = clonePtr(o.PreviousNextMessage)
	next.Reminder24Sent = boolOr(o.PreviousReminder24Sent, o.Reminder24Sent)
	next.Reminder48Sent = boolOr(o.PreviousReminder48Sent, o.Reminder48Sent)
	next.Reminder72Sent = boolOr(o.PreviousReminder72Sent, o.Reminder72Sent)
	next.HiddenToday = false

	next.PreviousStatus = nil
	next.PreviousPaidAt = nil
	next.PreviousAmount = decimal.NullDecimal{}
	next.PreviousNextMessage = nil
	next.PreviousReminder24Sent = nil
	next.PreviousReminder48Sent = nil
	next.PreviousReminder72Sent = nil

	cols := append(slices.Concat(liveColumns, snapshotColumns), entity.ColHiddenToday)
	return newChange(next, cols...), true
}

// HideOnly removes the order from today's views without touching status or snapshot.
func HideOnly(o entity.Order) Change {
	if o.HiddenToday {
		return Change{}
	}
	next := o
	next.HiddenToday = true
	return newChange(next, entity.ColHiddenToday)
}

// Unhide brings a hidden order back into today's views. Status and snapshot
// are left alone, so a fully cancelled order stays restorable.
func Unhide(o entity.Order) Change {
	if !o.HiddenToday {
		return Change{}
	}
	next := o
	next.HiddenToday = false
	return newChange(next, entity.ColHiddenToday)
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
