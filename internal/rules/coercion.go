// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

/*
 * Value coercion for text-based operators and timestamp ordering.
 *
 * The comparator is strict about kinds: "5" and 5 are not equal and cannot be
 * ordered. Two operators need controlled leniency:
 *   - regex and message rendering coerce any present value to text
 *   - ordering reads RFC 3339 strings as instants, against a time.Time
 *     operand or against another RFC 3339 string
 *
 * Text coercion (textOf):
 *   - string: unchanged
 *   - number: exact integer form when known, else shortest decimal form
 *     ('f', -1), so 95.0 renders as "95"
 *   - bool: "true"/"false"
 *   - time: RFC 3339 with nanoseconds
 *   - list/map: compact JSON
 */

// textOf converts a present value to its string form.
func textOf(v Value) string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		switch v.w {
		case signed:
			return strconv.FormatInt(v.i, 10)
		case unsigned:
			return strconv.FormatUint(v.u, 10)
		}
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindList, KindMap:
		b, err := json.Marshal(v.raw)
		if err != nil {
			return fmt.Sprintf("%v", v.raw)
		}
		return string(b)
	case KindAbsent:
		return ""
	default:
		return fmt.Sprintf("%v", v.raw)
	}
}

// timeOf returns v as a time when it is a time or an RFC 3339 string.
func timeOf(v Value) (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		t, err := time.Parse(time.RFC3339Nano, v.s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
