package license

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// trimSpace trims Unicode whitespace and the byte-order mark, which upstream
// exports occasionally prefix to text cells.
func trimSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// isBlank reports whether v is absent for normalization purposes: nil or a
// string that trims to nothing.
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return trimSpace(val) == ""
	case json.Number:
		return trimSpace(val.String()) == ""
	default:
		return false
	}
}

// first returns the first alias whose value is not blank.
func first(raw RawRecord, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && !isBlank(v) {
			return v
		}
	}
	return nil
}

// stringify renders scalar JSON values the way they appear in the upstream
// export: numbers without exponent or trailing zeros, booleans as words.
func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
}

// cleanString applies the clean rule and returns a string pointer.
func cleanString(v any) *string {
	if isBlank(v) {
		return nil
	}
	s, ok := stringify(v)
	if !ok {
		return nil
	}
	return &s
}

// toNumber coerces a value to a float. Blank values and anything that does not
// parse as a finite number are null.
func toNumber(v any, decimalComma bool) *float64 {
	if isBlank(v) {
		return nil
	}
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case bool:
		if val {
			f = 1
		}
	default:
		s, ok := stringify(val)
		if !ok {
			return nil
		}
		s = trimSpace(s)
		if decimalComma {
			s = strings.Replace(s, ",", ".", 1)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func toInt(v any) *int {
	n := toNumber(v, false)
	if n == nil || *n != math.Trunc(*n) {
		return nil
	}
	i := int(*n)
	return &i
}

// truthy mirrors the loose truthiness the upstream export relies on for
// optional object fields.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case int:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func ptr[T any](v T) *T { return &v }
