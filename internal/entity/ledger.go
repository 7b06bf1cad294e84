package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DayLayout is the textual form of a ledger day.
const DayLayout = "2006-01-02"

// LedgerEntry is an append-only record of a successful payment, bucketed by day.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:paid_order_items"`

	ID        uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Day       string          `bun:"day,notnull" json:"day"`
	OrderID   string          `bun:"order_id,notnull" json:"order_id"`
	Name      string          `bun:"name" json:"name"`
	Amount    decimal.Decimal `bun:"amount,notnull" json:"amount"`
	SKU       string          `bun:"sku" json:"sku"`
	Sizes     string          `bun:"sizes" json:"sizes"`
	Technique string          `bun:"technique" json:"technique"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
}

// DayOf returns the ledger day for t in the given location.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}
