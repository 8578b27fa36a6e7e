// internal/rules/operators.go
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solatis/advisor/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the 11 condition operators over classified Values.
 *
 * Operators:
 *   - eq/ne: structural equality; numbers compare across Go numeric types
 *   - gt/gte/lt/lte: number/number, string/string, time/time. Two strings
 *     that both parse as RFC 3339 order as instants, so offsets are honored;
 *     other strings order lexicographically. An RFC 3339 string is accepted
 *     opposite a time. eq/ne on strings stays textual.
 *   - contains/not_contains: substring, list element, or map key
 *   - in/not_in: membership of actual in an expected list or map key-set
 *   - regex: RE2 match-anywhere on the text form of actual
 *
 * Absent actual (missing field or null): only the negative operators
 * (ne, not_contains, not_in) match; every other operator returns false
 * without error.
 *
 * Incompatible kinds return *types.TypeMismatchError. The negative operators
 * propagate the mismatch rather than inverting it, so a mismatched
 * not_contains never silently matches.
 */

// Compare applies op to the resolved actual value and the condition operand.
func Compare(op types.Operator, actual Value, expected any) (bool, error) {
	if actual.IsAbsent() {
		return compareAbsent(op)
	}

	exp := ValueOf(expected)

	switch op {
	case types.OpEq:
		return equal(actual, exp), nil
	case types.OpNe:
		return !equal(actual, exp), nil
	case types.OpGt:
		c, err := order(op, actual, exp)
		return err == nil && c > 0, err
	case types.OpGte:
		c, err := order(op, actual, exp)
		return err == nil && c >= 0, err
	case types.OpLt:
		c, err := order(op, actual, exp)
		return err == nil && c < 0, err
	case types.OpLte:
		c, err := order(op, actual, exp)
		return err == nil && c <= 0, err
	case types.OpContains:
		return contains(op, actual, exp)
	case types.OpNotContains:
		ok, err := contains(op, actual, exp)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case types.OpIn:
		return member(op, actual, exp)
	case types.OpNotIn:
		ok, err := member(op, actual, exp)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case types.OpRegex:
		pattern, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("%w: pattern must be a string, got %s", types.ErrInvalidPattern, exp.Kind())
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("%w: %v", types.ErrInvalidPattern, err)
		}
		return matchPattern(re, actual), nil
	default:
		return false, fmt.Errorf("%w: %q", types.ErrUnsupportedOperator, op)
	}
}

// compareAbsent applies the absent-value policy.
func compareAbsent(op types.Operator) (bool, error) {
	switch op {
	case types.OpNe, types.OpNotContains, types.OpNotIn:
		return true, nil
	case types.OpEq, types.OpGt, types.OpGte, types.OpLt, types.OpLte,
		types.OpContains, types.OpIn, types.OpRegex:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", types.ErrUnsupportedOperator, op)
	}
}

// matchPattern runs a compiled pattern against the text form of actual.
func matchPattern(re *regexp.Regexp, actual Value) bool {
	if actual.IsAbsent() {
		return false
	}
	return re.MatchString(textOf(actual))
}

// equal performs structural equality. Absent equals only absent, which can
// occur inside lists and maps (JSON null elements).
func equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindAbsent:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		c, ok := compareNumbers(a, b)
		return ok && c == 0
	case KindString:
		return a.s == b.s
	case KindTime:
		return a.t.Equal(b.t)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !equal(ValueOf(a.list[i]), ValueOf(b.list[i])) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !equal(ValueOf(av), ValueOf(bv)) {
				return false
			}
		}
		return true
	default:
		return otherEqual(a.raw, b.raw)
	}
}

// order performs three-way comparison (-1/0/1) for totally ordered kinds.
func order(op types.Operator, a, b Value) (int, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		c, _ := compareNumbers(a, b)
		return c, nil
	case a.kind == KindString && b.kind == KindString:
		at, okA := timeOf(a)
		bt, okB := timeOf(b)
		if okA && okB {
			return at.Compare(bt), nil
		}
		return strings.Compare(a.s, b.s), nil
	case a.kind == KindTime || b.kind == KindTime:
		at, okA := timeOf(a)
		bt, okB := timeOf(b)
		if okA && okB {
			return at.Compare(bt), nil
		}
	}
	return 0, mismatch(op, a, b)
}

// contains tests whether actual holds expected as substring, element, or key.
func contains(op types.Operator, actual, expected Value) (bool, error) {
	switch actual.kind {
	case KindString:
		if expected.kind != KindString {
			return false, mismatch(op, actual, expected)
		}
		return strings.Contains(actual.s, expected.s), nil
	case KindList:
		for _, elem := range actual.list {
			if equal(ValueOf(elem), expected) {
				return true, nil
			}
		}
		return false, nil
	case KindMap:
		if expected.kind != KindString {
			return false, mismatch(op, actual, expected)
		}
		_, ok := actual.m[expected.s]
		return ok, nil
	default:
		return false, mismatch(op, actual, expected)
	}
}

// member tests whether actual is an element of the expected list or a key of
// the expected map.
func member(op types.Operator, actual, set Value) (bool, error) {
	switch set.kind {
	case KindList:
		for _, elem := range set.list {
			if equal(actual, ValueOf(elem)) {
				return true, nil
			}
		}
		return false, nil
	case KindMap:
		if actual.kind != KindString {
			return false, mismatch(op, actual, set)
		}
		_, ok := set.m[actual.s]
		return ok, nil
	default:
		return false, mismatch(op, actual, set)
	}
}

func mismatch(op types.Operator, a, b Value) error {
	return &types.TypeMismatchError{
		Operator: op,
		Actual:   a.kind.String(),
		Expected: b.kind.String(),
	}
}
