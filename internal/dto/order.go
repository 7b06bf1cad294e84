package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

// OrderItemResponse is a normalized line item.
type OrderItemResponse struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Technique string `json:"technique"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	OrderID          string              `json:"order_id"`
	Status           string              `json:"status"`
	Amount           decimal.Decimal     `json:"amount"`
	DiscountedAmount *decimal.Decimal    `json:"discounted_amount,omitempty"`
	Customer         string              `json:"customer,omitempty"`
	Phone            string              `json:"phone,omitempty"`
	Product          string              `json:"product"`
	SKU              string              `json:"sku"`
	Sizes            string              `json:"sizes"`
	Technique        string              `json:"technique"`
	Quantity         int                 `json:"quantity"`
	Items            []OrderItemResponse `json:"items"`
	NextMessage      *string             `json:"next_message,omitempty"`
	Reminders        ReminderFlags       `json:"reminders"`
	HiddenToday      bool                `json:"hidden_today"`
	Restorable       bool                `json:"restorable"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	Version          int64               `json:"version"`
}

// ReminderFlags mirrors the monotonic reminder flag set.
type ReminderFlags struct {
	Sent24h bool `json:"sent_24h"`
	Sent48h bool `json:"sent_48h"`
	Sent72h bool `json:"sent_72h"`
}

// CancelRequest is the body of a cancel command.
type CancelRequest struct {
	Mode string `json:"mode" validate:"required,oneof=hide full"`
}

// LedgerEntryResponse is one paid-items ledger row.
type LedgerEntryResponse struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	SKU       string          `json:"sku"`
	Sizes     string          `json:"sizes"`
	Technique string          `json:"technique"`
	CreatedAt time.Time       `json:"created_at"`
}

// LedgerDayResponse is the ledger of one day.
type LedgerDayResponse struct {
	Day     string                `json:"day"`
	Total   decimal.Decimal       `json:"total"`
	Entries []LedgerEntryResponse `json:"entries"`
}

// FromOrder maps an order entity to its transport form.
func FromOrder(o *entity.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse(it))
	}
	resp := OrderResponse{
		OrderID:     o.OrderID,
		Status:      string(o.Status),
		Amount:      o.Amount,
		Customer:    o.Customer,
		Phone:       o.Phone,
		Product:     o.Product,
		SKU:         o.SKU,
		Sizes:       o.Sizes,
		Technique:   o.Technique,
		Quantity:    o.Quantity,
		Items:       items,
		NextMessage: o.NextMessage,
		Reminders: ReminderFlags{
			Sent24h: o.Reminder24Sent,
			Sent48h: o.Reminder48Sent,
			Sent72h: o.Reminder72Sent,
		},
		HiddenToday: o.HiddenToday,
		Restorable:  o.HasSnapshot(),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		PaidAt:      o.PaidAt,
		Version:     o.Version,
	}
	if o.DiscountedAmount.Valid {
		d := o.DiscountedAmount.Decimal
		resp.DiscountedAmount = &d
	}
	return resp
}

// FromOrders maps a list of orders.
func FromOrders(orders []entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, FromOrder(&orders[i]))
	}
	return out
}

// FromLedger maps ledger entries of one day.
func FromLedger(day string, total decimal.Decimal, entries []entity.LedgerEntry) LedgerDayResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryResponse{
			ID:        e.ID.String(),
			OrderID:   e.OrderID,
			Name:      e.Name,
			Amount:    e.Amount,
			SKU:       e.SKU,
			Sizes:     e.Sizes,
			Technique: e.Technique,
			CreatedAt: e.CreatedAt,
		})
	}
	return LedgerDayResponse{Day: day, Total: total, Entries: out}
}
