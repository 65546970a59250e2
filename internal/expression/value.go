package expression

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Normalize converts Go values from a scope into the evaluator's value set:
// nil, bool, float64, string, []any and map[string]any.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, float64, string, []any, map[string]any:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, s := range x {
			out[k] = s
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[ToString(Normalize(iter.Key().Interface()))] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Int8, reflect.Int16:
		return float64(rv.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return float64(rv.Uint())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

// Truthy applies the template truth rules: nil, false, 0, "", "0" and
// empty collections are false.
func Truthy(v any) bool {
	switch x := Normalize(v).(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0"
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// ToString renders a value for output: true is "1", false and nil are
// empty, integral numbers print without a fraction.
func ToString(v any) string {
	switch x := Normalize(v).(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "1"
		}
		return ""
	case float64:
		return formatNumber(x)
	case string:
		return x
	case []any, map[string]any:
		return "Array"
	}
	return ""
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber converts a value for arithmetic. Strings contribute their
// leading numeric part.
func ToNumber(v any) float64 {
	switch x := Normalize(v).(type) {
	case bool:
		if x {
			return 1
		}
	case float64:
		return x
	case string:
		f, _ := leadingNumber(x)
		return f
	case []any:
		if len(x) > 0 {
			return 1
		}
	}
	return 0
}

// leadingNumber parses the numeric prefix of s. The second result reports
// whether the whole string was numeric.
func leadingNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" || strings.IndexByte("0123456789.-+", t[0]) < 0 {
		return 0, false
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f, true
	}
	end := 0
	for end < len(t) {
		c := t[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	for end > 0 {
		if f, err := strconv.ParseFloat(t[:end], 64); err == nil {
			return f, false
		}
		end--
	}
	return 0, false
}

func isNumeric(s string) bool {
	_, ok := leadingNumber(s)
	return ok
}

// LooseEqual compares with type juggling: bools compare by truthiness,
// numeric strings compare as numbers, otherwise values compare as strings.
func LooseEqual(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case nil:
		switch y := b.(type) {
		case nil:
			return true
		case string:
			return y == ""
		case []any:
			return len(y) == 0
		}
		return !Truthy(b)
	case bool:
		return x == Truthy(b)
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case string:
			if isNumeric(y) {
				f, _ := leadingNumber(y)
				return x == f
			}
			return formatNumber(x) == y
		}
	case string:
		switch y := b.(type) {
		case string:
			if isNumeric(x) && isNumeric(y) {
				fx, _ := leadingNumber(x)
				fy, _ := leadingNumber(y)
				return fx == fy
			}
			return x == y
		case float64:
			return LooseEqual(y, x)
		}
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			break
		}
		for i := range x {
			if !LooseEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	switch b.(type) {
	case nil, bool:
		return LooseEqual(b, a)
	}
	return false
}

// StrictEqual requires the same value kind and value.
func StrictEqual(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !StrictEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// compare orders two values: numerically when either side is a number or
// both are numeric strings, lexically otherwise.
func compare(a, b any) int {
	a, b = Normalize(a), Normalize(b)
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr && !(isNumeric(sa) && isNumeric(sb)) {
		return strings.Compare(sa, sb)
	}
	fa, fb := ToNumber(a), ToNumber(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}
