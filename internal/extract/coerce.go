package extract

import (
	"math"
	"strconv"
	"strings"
)

// Lookup returns the first present, non-nil value among keys.
func Lookup(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// String renders scalar values as text. Objects and arrays yield "".
func String(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// Float parses numbers and numeric strings such as "$12.99", "12,50" or
// "1,299.00".
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimLeft(s, "$€£¥ ")
		s = normalizeSeparators(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// normalizeSeparators reads a comma as the decimal separator only in forms
// like "12,50": a single comma, no dot, exactly two digits after it. Any
// other comma is a thousands separator and is dropped.
func normalizeSeparators(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 &&
		strings.Count(s, ",") == 1 && !strings.Contains(s, ".") && len(s)-i-1 == 2 {
		return s[:i] + "." + s[i+1:]
	}
	return strings.ReplaceAll(s, ",", "")
}

// Int is Float rounded to the nearest integer.
func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// Strings collects the string elements of a JSON array value.
func Strings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		if s := String(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
