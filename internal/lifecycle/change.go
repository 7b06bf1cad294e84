// Package lifecycle holds the pure order state machine: reminder escalation,
// paid/complete transitions and the cancel/restore snapshot. Functions take an
// order value and return a Change; nothing here performs I/O.
package lifecycle

import (
	"errors"
	"slices"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

var (
	// ErrInvalidTransition is returned when the current status does not allow the transition.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSnapshotPending is returned when a full cancel is attempted while a previous one awaits restore.
	ErrSnapshotPending = errors.New("order already has a pending cancel snapshot")
)

// Change is the next state of an order together with the columns that differ
// from the state it was computed from.
type Change struct {
	next    entity.Order
	columns []string
}

func newChange(next entity.Order, columns ...string) Change {
	return Change{next: next, columns: columns}
}

// Empty reports whether the change touches nothing.
func (c Change) Empty() bool {
	return len(c.columns) == 0
}

// Order returns the resulting order value.
func (c Change) Order() entity.Order {
	return c.next
}

// Columns returns the touched column names in a stable order.
func (c Change) Columns() []string {
	return slices.Clone(c.columns)
}

// Touches reports whether column is part of the change.
func (c Change) Touches(column string) bool {
	return slices.Contains(c.columns, column)
}

func ptr[T any](v T) *T {
	return &v
}
