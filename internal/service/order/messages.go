package order

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/ordertrack/internal/entity"
	"github.com/Additional-Code/ordertrack/internal/lifecycle"
)

func newOrderText(o *entity.Order) string {
	return fmt.Sprintf("🆕 <b>Order %s</b>\n%s\nTotal: %s",
		html.EscapeString(o.OrderID), itemLines(o), o.Amount.StringFixed(2))
}

func paidText(o *entity.Order) string {
	return fmt.Sprintf("✅ <b>Order %s</b> paid: %s", html.EscapeString(o.OrderID), chargedAmount(o).StringFixed(2))
}

// supplierText is the production summary sent once an order is paid.
func supplierText(o *entity.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Order %s</b>\n", html.EscapeString(o.OrderID))
	b.WriteString(itemLines(o))
	if o.Sizes != "" {
		fmt.Fprintf(&b, "\nSizes: %s", html.EscapeString(o.Sizes))
	}
	if o.Technique != "" {
		fmt.Fprintf(&b, "\nTechnique: %s", html.EscapeString(o.Technique))
	}
	fmt.Fprintf(&b, "\nQuantity: %d", o.Quantity)
	return b.String()
}

func cancelledText(o *entity.Order) string {
	return fmt.Sprintf("❌ <b>Order %s</b> cancelled", html.EscapeString(o.OrderID))
}

func restoredText(o *entity.Order) string {
	return fmt.Sprintf("↩️ <b>Order %s</b> restored to %s", html.EscapeString(o.OrderID), o.Status)
}

func reminderText(o *entity.Order, r lifecycle.Reminder) string {
	id := html.EscapeString(o.OrderID)
	switch r {
	case lifecycle.Reminder24h:
		return fmt.Sprintf("⏰ <b>Order %s</b> is awaiting payment for 24h (%s)", id, o.Amount.StringFixed(2))
	case lifecycle.Reminder48h:
		return fmt.Sprintf("⏰ <b>Order %s</b> unpaid for 48h, discounted total %s", id, chargedAmount(o).StringFixed(2))
	case lifecycle.Reminder72h:
		return fmt.Sprintf("🛑 <b>Order %s</b> cancelled automatically after 72h without payment", id)
	}
	return ""
}

func itemLines(o *entity.Order) string {
	if len(o.Items) == 0 {
		return html.EscapeString(o.Product)
	}
	lines := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		line := html.EscapeString(it.Name)
		if it.SKU != "" {
			line += " [" + html.EscapeString(it.SKU) + "]"
		}
		var attrs []string
		if it.Size != "" {
			attrs = append(attrs, html.EscapeString(it.Size))
		}
		if it.Technique != "" {
			attrs = append(attrs, html.EscapeString(it.Technique))
		}
		if len(attrs) > 0 {
			line += " (" + strings.Join(attrs, ", ") + ")"
		}
		lines = append(lines, fmt.Sprintf("• %s × %d", line, max(it.Quantity, 1)))
	}
	return strings.Join(lines, "\n")
}

// chargedAmount is the discounted total when one was offered, else the amount.
func chargedAmount(o *entity.Order) decimal.Decimal {
	if o.DiscountedAmount.Valid {
		return o.DiscountedAmount.Decimal
	}
	return o.Amount
}
