package normalizer

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// stringExtractor resolves a single string value from a raw object.
type stringExtractor func(map[string]any) (string, bool)

// firstString composes extractors; the first one that finds a value wins.
func firstString(chain ...stringExtractor) stringExtractor {
	return func(m map[string]any) (string, bool) {
		for _, extract := range chain {
			if v, ok := extract(m); ok {
				return v, true
			}
		}
		return "", false
	}
}

// keyString looks up the first non-empty scalar under any of keys.
func keyString(keys ...string) stringExtractor {
	return func(m map[string]any) (string, bool) {
		for _, k := range keys {
			if s, ok := scalarString(m[k]); ok {
				return s, true
			}
		}
		return "", false
	}
}

// nestedString resolves inner within the object stored under key.
func nestedString(key string, inner stringExtractor) stringExtractor {
	return func(m map[string]any) (string, bool) {
		obj, ok := asObject(m[key])
		if !ok {
			return "", false
		}
		return inner(obj)
	}
}

// joinedStrings resolves every key and joins the found parts with a space.
func joinedStrings(keys ...string) stringExtractor {
	return func(m map[string]any) (string, bool) {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := scalarString(m[k]); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true
	}
}

// scalarString renders strings and numbers; anything else is not a scalar.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// positiveInt coerces numbers and numeric strings ("2", "2 pcs", "3.0") to an int ≥ 1.
func positiveInt(v any) (int, bool) {
	var n float64
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case string:
		f, ok := leadingNumber(t)
		if !ok {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || n < 1 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// asObject accepts an object or a JSON string that decodes to one.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case *object:
		return t.fields, true
	case string:
		if raw, ok := decodeJSON(t); ok {
			if obj, ok := raw.(*object); ok {
				return obj.fields, true
			}
		}
	}
	return nil, false
}

// asList accepts an array, a JSON string holding an array, or an object keyed
// by position ("0", "1", …) as some exporters produce.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, len(t) > 0
	case string:
		raw, ok := decodeJSON(t)
		if !ok {
			return nil, false
		}
		return asList(raw)
	case map[string]any:
		return indexedValues(t)
	case *object:
		return indexedValues(t.fields)
	}
	return nil, false
}

func indexedValues(m map[string]any) ([]any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	keys := make([]int, 0, len(m))
	byIndex := make(map[int]any, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, false
		}
		keys = append(keys, i)
		byIndex[i] = v
	}
	sort.Ints(keys)
	out := make([]any, 0, len(keys))
	for _, i := range keys {
		out = append(out, byIndex[i])
	}
	return out, true
}
