package normalizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// object is a decoded JSON object that keeps its keys in document order.
type object struct {
	fields map[string]any
	order  []string
}

// decodeJSON decodes s when it looks like a JSON object, array or string.
// Objects come back as *object; numbers as json.Number.
func decodeJSON(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[' && s[0] != '"') {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := readValue(dec)
	if err != nil {
		return nil, false
	}
	return v, true
}

func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{fields: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v", keyTok)
			}
			val, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			// Repeated keys keep their first position and the last value.
			if _, seen := obj.fields[key]; !seen {
				obj.order = append(obj.order, key)
			}
			obj.fields[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := []any{}
		for dec.More() {
			val, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

// orderedFields returns an object's fields with its key order. Maps built in
// code have no document order and are walked by sorted key.
func orderedFields(v any) (map[string]any, []string, bool) {
	switch t := v.(type) {
	case *object:
		return t.fields, t.order, true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return t, keys, true
	case string:
		if raw, ok := decodeJSON(t); ok {
			if obj, ok := raw.(*object); ok {
				return obj.fields, obj.order, true
			}
		}
	}
	return nil, nil, false
}
