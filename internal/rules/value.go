// internal/rules/value.go
package rules

import (
	"cmp"
	"encoding/json"
	"math"
	"reflect"
	"time"
)

/*
 * Tagged value representation for condition operands.
 *
 * Context data and condition operands arrive as loosely typed JSON/YAML content
 * (map[string]any, []any, float64, string, bool, nil) or as Go values supplied
 * directly by callers (int, []string, time.Time, ...). ValueOf classifies every
 * operand into a closed Kind set once, so the comparator switches on Kind rather
 * than on reflection.
 *
 * Normalization:
 *   - All Go numeric types and json.Number become float64 (KindNumber).
 *     Integer operands also keep their exact value, and two integers compare
 *     on it, so int64 values above 2^53 stay distinct. An integer against a
 *     float compares as float64.
 *   - nil and unresolved paths become KindAbsent (the absent sentinel)
 *   - Typed slices ([]string, []int, ...) become []any (KindList)
 *   - map[string]string becomes map[string]any (KindMap)
 *   - Anything else is KindOther, compared structurally
 */

// Kind classifies a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindNumber
	KindString
	KindTime
	KindList
	KindMap
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "other"
	}
}

// width records whether a number carries an exact integer form.
type width uint8

const (
	inexact  width = iota
	signed         // exact value in i
	unsigned       // above math.MaxInt64, exact value in u
)

// Value is a classified operand. The zero Value is absent.
type Value struct {
	kind Kind
	b    bool
	n    float64
	w    width
	i    int64
	u    uint64
	s    string
	t    time.Time
	list []any
	m    map[string]any
	raw  any
}

// Absent returns the absent sentinel used for unresolved field paths.
func Absent() Value {
	return Value{}
}

// ValueOf classifies v.
func ValueOf(v any) Value {
	if n, ok := toFloat64(v); ok {
		num := Value{kind: KindNumber, n: n, raw: n}
		num.w, num.i, num.u = toInteger(v)
		return num
	}
	switch x := v.(type) {
	case nil:
		return Value{}
	case Value:
		return x
	case bool:
		return Value{kind: KindBool, b: x, raw: x}
	case string:
		return Value{kind: KindString, s: x, raw: x}
	case json.Number:
		return Value{kind: KindString, s: x.String(), raw: x.String()}
	case time.Time:
		return Value{kind: KindTime, t: x, raw: x}
	case *time.Time:
		if x == nil {
			return Value{}
		}
		return Value{kind: KindTime, t: *x, raw: *x}
	}
	if list, ok := asList(v); ok {
		return Value{kind: KindList, list: list, raw: list}
	}
	if m, ok := asMap(v); ok {
		return Value{kind: KindMap, m: m, raw: m}
	}
	return Value{kind: KindOther, raw: v}
}

// Kind returns the classification of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v is the absent sentinel.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Interface returns the normalized Go value (nil when absent).
func (v Value) Interface() any {
	return v.raw
}

// toFloat64 converts value to float64 if it's a numeric type.
// Handles float64 from JSON unmarshaling and int from YAML decoding.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toInteger returns the exact form of an integer operand.
func toInteger(v any) (width, int64, uint64) {
	switch n := v.(type) {
	case int:
		return signed, int64(n), 0
	case int8:
		return signed, int64(n), 0
	case int16:
		return signed, int64(n), 0
	case int32:
		return signed, int64(n), 0
	case int64:
		return signed, n, 0
	case uint8:
		return signed, int64(n), 0
	case uint16:
		return signed, int64(n), 0
	case uint32:
		return signed, int64(n), 0
	case uint:
		return fromUint64(uint64(n))
	case uint64:
		return fromUint64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return signed, i, 0
		}
	}
	return inexact, 0, 0
}

func fromUint64(n uint64) (width, int64, uint64) {
	if n <= math.MaxInt64 {
		return signed, int64(n), 0
	}
	return unsigned, 0, n
}

// compareNumbers orders two KindNumber values. The bool result is false when
// either side is NaN.
func compareNumbers(a, b Value) (int, bool) {
	if a.w != inexact && b.w != inexact {
		switch {
		case a.w == signed && b.w == signed:
			return cmp.Compare(a.i, b.i), true
		case a.w == unsigned && b.w == unsigned:
			return cmp.Compare(a.u, b.u), true
		case a.w == unsigned:
			return 1, true
		default:
			return -1, true
		}
	}
	if math.IsNaN(a.n) || math.IsNaN(b.n) {
		return 0, false
	}
	return cmp.Compare(a.n, b.n), true
}

// asList normalizes the sequence shapes produced by decoders and common Go callers.
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []bool:
		out := make([]any, len(x))
		for i, b := range x {
			out[i] = b
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// asMap normalizes mapping shapes. yaml.v3 decodes nested mappings as
// map[string]any, so map[any]any is not expected here.
func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, s := range x {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// otherEqual compares values outside the closed Kind set.
func otherEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
