package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
	StatusDeleted        Status = "deleted"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDeleted
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusCancelled, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

// Message keys stored in Order.NextMessage.
const (
	MessageReminder48h = "reminder_48h"
	MessageReminder72h = "reminder_72h"
)

// Column names used for partial updates.
const (
	ColStatus                 = "status"
	ColPaidAt                 = "paid_at"
	ColAmount                 = "amount"
	ColDiscountedAmount       = "discounted_amount"
	ColNextMessage            = "next_message"
	ColPaidMessagePending     = "paid_message_pending"
	ColReminder24Sent         = "reminder_24_sent"
	ColReminder48Sent         = "reminder_48_sent"
	ColReminder72Sent         = "reminder_72_sent"
	ColHiddenToday            = "hidden_today"
	ColPreviousStatus         = "previous_status"
	ColPreviousPaidAt         = "previous_paid_at"
	ColPreviousAmount         = "previous_amount"
	ColPreviousNextMessage    = "previous_next_message"
	ColPreviousReminder24Sent = "previous_reminder_24_sent"
	ColPreviousReminder48Sent = "previous_reminder_48_sent"
	ColPreviousReminder72Sent = "previous_reminder_72_sent"
	ColVersion                = "version"
	ColUpdatedAt              = "updated_at"
)

// OrderItem is a single normalized line of an order.
type OrderItem struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Technique string `json:"technique"`
}

// Order represents a retail order tracked through payment and fulfillment.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID       int64           `bun:",pk,autoincrement" json:"-"`
	OrderID  string          `bun:"order_id,notnull,unique" json:"order_id"`
	Status   Status          `bun:"status,notnull" json:"status"`
	Amount   decimal.Decimal `bun:"amount,notnull" json:"amount"`
	Customer string          `bun:"customer" json:"customer"`
	Phone    string          `bun:"phone" json:"phone"`

	Product   string      `bun:"product" json:"product"`
	SKU       string      `bun:"sku" json:"sku"`
	Sizes     string      `bun:"sizes" json:"sizes"`
	Technique string      `bun:"technique" json:"technique"`
	Quantity  int         `bun:"quantity,notnull" json:"quantity"`
	Items     []OrderItem `bun:"items,type:jsonb" json:"items"`

	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero" json:"updated_at"`
	PaidAt    *time.Time `bun:"paid_at" json:"paid_at,omitempty"`

	PaidMessagePending bool                `bun:"paid_message_pending,notnull" json:"paid_message_pending"`
	NextMessage        *string             `bun:"next_message" json:"next_message,omitempty"`
	DiscountedAmount   decimal.NullDecimal `bun:"discounted_amount" json:"discounted_amount"`
	Reminder24Sent     bool                `bun:"reminder_24_sent,notnull" json:"reminder_24_sent"`
	Reminder48Sent     bool                `bun:"reminder_48_sent,notnull" json:"reminder_48_sent"`
	Reminder72Sent     bool                `bun:"reminder_72_sent,notnull" json:"reminder_72_sent"`
	HiddenToday        bool                `bun:"hidden_today,notnull" json:"hidden_today"`

	PreviousStatus         *Status             `bun:"previous_status" json:"previous_status,omitempty"`
	PreviousPaidAt         *time.Time          `bun:"previous_paid_at" json:"previous_paid_at,omitempty"`
	PreviousAmount         decimal.NullDecimal `bun:"previous_amount" json:"previous_amount"`
	PreviousNextMessage    *string             `bun:"previous_next_message" json:"previous_next_message,omitempty"`
	PreviousReminder24Sent *bool               `bun:"previous_reminder_24_sent" json:"previous_reminder_24_sent,omitempty"`
	PreviousReminder48Sent *bool               `bun:"previous_reminder_48_sent" json:"previous_reminder_48_sent,omitempty"`
	PreviousReminder72Sent *bool               `bun:"previous_reminder_72_sent" json:"previous_reminder_72_sent,omitempty"`

	Version int64 `bun:"version,notnull" json:"version"`
}

// HasSnapshot reports whether a destructive cancel is awaiting a possible restore.
func (o *Order) HasSnapshot() bool {
	return o.PreviousStatus != nil
}
