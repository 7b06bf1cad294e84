package normalizer

import (
	"strings"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

// Summary holds the flattened display fields stored on an order.
type Summary struct {
	Product   string
	SKU       string
	Sizes     string
	Technique string
	Quantity  int
}

// Aggregate flattens items into display strings. Product and SKU keep one
// entry per line; sizes and techniques are de-duplicated in first-seen order.
func Aggregate(items []entity.OrderItem) Summary {
	var (
		names, skus       []string
		sizes, techniques orderedSet
		quantity          int
	)
	for _, it := range items {
		if it.Name != "" {
			names = append(names, it.Name)
		}
		if it.SKU != "" {
			skus = append(skus, it.SKU)
		}
		sizes.add(it.Size)
		techniques.add(it.Technique)
		quantity += max(it.Quantity, 1)
	}
	return Summary{
		Product:   strings.Join(names, " | "),
		SKU:       strings.Join(skus, " | "),
		Sizes:     strings.Join(sizes.values, ", "),
		Technique: strings.Join(techniques.values, ", "),
		Quantity:  max(quantity, 1),
	}
}

type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}
