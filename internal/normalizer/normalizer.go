// Package normalizer turns inconsistently shaped commerce payloads into a
// canonical order header and item list. It never fails: anything it cannot
// resolve falls back to an empty string or a quantity of one.
package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

// Parsed is the canonical view of an inbound order payload.
type Parsed struct {
	OrderID  string
	Amount   decimal.Decimal
	Customer string
	Phone    string
	Items    []entity.OrderItem
}

var (
	collectionKeys = []string{"line_items", "items", "products", "order_items", "cart"}
	wrapperKeys    = []string{"order", "data", "payload"}

	orderID       = keyString("order_id", "id", "number", "order_number")
	orderAmount   = keyString("total", "amount", "order_total", "sum")
	orderCustomer = firstString(
		keyString("customer_name"),
		nestedString("billing", joinedStrings("first_name", "last_name")),
		nestedString("customer", firstString(keyString("name"), joinedStrings("first_name", "last_name"))),
		keyString("customer"),
	)
	orderPhone = firstString(
		keyString("phone", "customer_phone"),
		nestedString("billing", keyString("phone")),
		nestedString("customer", keyString("phone")),
	)
)

// Decode reads a raw JSON payload into a generic object. Invalid or non-object
// payloads decode to an empty object.
func Decode(payload []byte) map[string]any {
	raw, ok := decodeJSON(string(payload))
	if !ok {
		return map[string]any{}
	}
	root, ok := asObject(raw)
	if !ok {
		return map[string]any{}
	}
	return root
}

// ParseOrder resolves the order header and items from a raw payload.
func ParseOrder(payload []byte) Parsed {
	return ParseObject(Decode(payload))
}

// ParseObject resolves the order header and items from a decoded payload.
func ParseObject(root map[string]any) Parsed {
	scopes := scopesOf(root)
	p := Parsed{
		OrderID:  firstIn(scopes, orderID),
		Customer: firstIn(scopes, orderCustomer),
		Phone:    firstIn(scopes, orderPhone),
		Amount:   decimal.Zero,
		Items:    NormalizeItems(root),
	}
	if raw := firstIn(scopes, orderAmount); raw != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ".")); err == nil {
			p.Amount = d
		}
	}
	return p
}

// NormalizeItems locates the item collection and normalizes every entry,
// preserving line order.
func NormalizeItems(root map[string]any) []entity.OrderItem {
	raw, ok := locateItems(root)
	if !ok {
		return []entity.OrderItem{}
	}
	items := make([]entity.OrderItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, normalizeItem(r))
	}
	return items
}

// locateItems tries each known collection key at the top level first and then
// one level down inside common wrappers; the first non-empty match wins.
func locateItems(root map[string]any) ([]any, bool) {
	for _, scope := range scopesOf(root) {
		for _, k := range collectionKeys {
			if list, ok := asList(scope[k]); ok {
				return list, true
			}
		}
	}
	return nil, false
}

// scopesOf returns the root followed by any wrapper objects nested under it.
func scopesOf(root map[string]any) []map[string]any {
	scopes := []map[string]any{root}
	for _, k := range wrapperKeys {
		if inner, ok := asObject(root[k]); ok {
			scopes = append(scopes, inner)
		}
	}
	return scopes
}

func firstIn(scopes []map[string]any, extract stringExtractor) string {
	for _, s := range scopes {
		if v, ok := extract(s); ok {
			return v
		}
	}
	return ""
}
