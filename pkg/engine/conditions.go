package engine

import "reflect"

// ConditionsMatch reports whether every trigger condition is present in the
// payload with an equal value. Empty or nil conditions match everything;
// extra payload keys are ignored.
func ConditionsMatch(conditions, payload map[string]any) bool {
	for key, expected := range conditions {
		actual, ok := payload[key]
		if !ok {
			return false
		}

		if !valuesEqual(expected, actual) {
			return false
		}
	}

	return true
}

// valuesEqual compares condition and payload values. Numbers compare by
// value regardless of Go type, since JSON decoding yields float64 while
// in-process callers pass int.
func valuesEqual(a, b any) bool {
	if aNum, aOk := asFloat(a); aOk {
		bNum, bOk := asFloat(b)

		return bOk && aNum == bNum
	}

	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
