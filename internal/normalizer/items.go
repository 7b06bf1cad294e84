package normalizer

import (
	"regexp"
	"strings"

	"github.com/Additional-Code/ordertrack/internal/entity"
)

// category is an attribute family resolved from loosely named metadata.
type category struct {
	keys    map[string]struct{}
	pattern *regexp.Regexp
}

func newCategory(label string, keys ...string) category {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return category{
		keys:    set,
		pattern: regexp.MustCompile(`(?i)(?:^|[\s,;(|])(?:` + label + `)\s*[:=]\s*([^,;|\n)]+)`),
	}
}

func (c category) matches(key string) bool {
	_, ok := c.keys[canonicalKey(key)]
	return ok
}

var (
	sizeCategory = newCategory(`size|sizes|razmer|размер`,
		"size", "sizes", "razmer", "размер", "tshirt_size", "clothing_size")
	techniqueCategory = newCategory(`technique|tehnika|техника|print`,
		"technique", "techniques", "tehnika", "техника", "print_technique", "print", "print_type", "application")
)

// canonicalKey lowercases and strips commerce attribute prefixes so that
// "pa_sizes", "attribute_pa_size" and "Size" compare equal to their bare form.
func canonicalKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.TrimPrefix(k, "attribute_")
	k = strings.TrimPrefix(k, "pa_")
	return strings.ReplaceAll(k, " ", "_")
}

var (
	itemName = firstString(
		keyString("name", "title", "product_name", "product_title"),
		nestedString("product", keyString("name", "title")),
		keyString("product"),
	)
	itemSKU = firstString(
		keyString("sku", "SKU", "article", "product_sku", "variation_sku", "vendor_code"),
		nestedString("product", keyString("sku", "article")),
	)
	quantityKeys = []string{"quantity", "qty", "count", "quantity_ordered"}

	metaSources      = []string{"meta_data", "meta", "metadata", "item_meta", "options"}
	attributeSources = []string{"attributes", "variation", "variations", "variation_attributes"}
	textSources      = []string{"description", "variation_text", "note", "comment", "options_text"}
)

// normalizeItem resolves one raw item. Each field is resolved on its own so a
// missing or malformed field never blocks the others.
func normalizeItem(raw any) entity.OrderItem {
	item := entity.OrderItem{Quantity: 1}

	obj, ok := asObject(raw)
	if !ok {
		if name, ok := scalarString(raw); ok {
			item.Name = name
		}
		return item
	}

	item.Name, _ = itemName(obj)
	item.SKU, _ = itemSKU(obj)
	for _, k := range quantityKeys {
		if q, ok := positiveInt(obj[k]); ok {
			item.Quantity = q
			break
		}
	}
	item.Size = resolveAttribute(obj, sizeCategory)
	item.Technique = resolveAttribute(obj, techniqueCategory)
	return item
}

// resolveAttribute tries metadata, then attribute/variation entries, then
// labelled free text. Within each source the first matching key wins.
func resolveAttribute(obj map[string]any, c category) string {
	chain := []func(map[string]any, category) (string, bool){
		fromPairs(metaSources),
		fromPairs(attributeSources),
		fromText,
	}
	for _, resolve := range chain {
		if v, ok := resolve(obj, c); ok {
			return v
		}
	}
	return ""
}

func fromPairs(sources []string) func(map[string]any, category) (string, bool) {
	return func(obj map[string]any, c category) (string, bool) {
		for _, src := range sources {
			if v, ok := scanPairs(obj[src], c); ok {
				return v, true
			}
		}
		return "", false
	}
}

// scanPairs walks a metadata-like structure: a list of {key,value} style
// entries, a plain key→value object, or either encoded as a JSON string.
// Object keys are visited in document order.
func scanPairs(v any, c category) (string, bool) {
	if list, ok := asList(v); ok {
		for _, entry := range list {
			obj, ok := asObject(entry)
			if !ok {
				continue
			}
			if val, ok := matchPair(obj, c); ok {
				return val, true
			}
		}
		return "", false
	}

	obj, keys, ok := orderedFields(v)
	if !ok {
		return "", false
	}
	for _, k := range keys {
		if !c.matches(k) {
			continue
		}
		if val, ok := pairScalar(obj[k]); ok {
			return val, true
		}
	}
	return "", false
}

var (
	pairKeys  = []string{"key", "display_key", "name", "attribute", "label"}
	pairValue = keyString("display_value", "value", "option", "val")
)

func matchPair(entry map[string]any, c category) (string, bool) {
	matched := false
	for _, k := range pairKeys {
		if s, ok := scalarString(entry[k]); ok && c.matches(s) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}
	if val, ok := pairValue(entry); ok {
		return val, true
	}
	if opts, ok := entry["options"].([]any); ok {
		for _, o := range opts {
			if s, ok := scalarString(o); ok {
				return s, true
			}
		}
	}
	return "", false
}

// pairScalar accepts a scalar or a one-level list of scalars (first wins).
func pairScalar(v any) (string, bool) {
	if s, ok := scalarString(v); ok {
		return s, true
	}
	if list, ok := v.([]any); ok {
		for _, e := range list {
			if s, ok := scalarString(e); ok {
				return s, true
			}
		}
	}
	return "", false
}

func fromText(obj map[string]any, c category) (string, bool) {
	for _, src := range textSources {
		text, ok := obj[src].(string)
		if !ok {
			continue
		}
		if m := c.pattern.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}
