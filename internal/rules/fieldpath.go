// internal/rules/fieldpath.go
package rules

import (
	"strconv"
	"strings"

	"github.com/solatis/advisor/internal/types"
)

/*
 * Field path resolution for context data.
 *
 * Condition fields are dotted paths ("request.user.age") into
 * EvaluationContext.Data. Resolution scheme:
 *   1. At a mapping, try the longest run of remaining segments joined with "."
 *      as a literal key first, then progressively shorter runs down to a single
 *      segment. This lets flattened facts ({"request.user.age": 30}) and nested
 *      facts ({"request": {"user": {"age": 30}}}) resolve through the same path.
 *   2. At a sequence, the segment must be a non-negative integer index.
 *   3. Scalars cannot be descended into.
 *
 * The first complete resolution wins. An unresolvable path yields the absent
 * sentinel, never an error. Every step consumes at least one segment, so
 * resolution terminates even when context data references itself; path length
 * is capped at MaxPathDepth at compile time.
 */

// ParseFieldPath splits a dotted field path into segments.
// Returns ErrInvalidFieldPath for empty paths or empty segments and
// ErrPathTooDeep for paths longer than MaxPathDepth.
func ParseFieldPath(field string) ([]string, error) {
	if field == "" {
		return nil, types.ErrInvalidFieldPath
	}
	segments := strings.Split(field, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, types.ErrInvalidFieldPath
		}
	}
	if len(segments) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	return segments, nil
}

// Resolve looks up path in data. Missing keys, out-of-range indices and JSON
// nulls all resolve to the absent sentinel.
func Resolve(path []string, data map[string]any) Value {
	if len(path) == 0 || data == nil {
		return Absent()
	}
	v, found := resolveRecursive(path, data)
	if !found {
		return Absent()
	}
	return ValueOf(v)
}

// resolveRecursive descends current following path; reports whether the full
// path resolved.
func resolveRecursive(path []string, current any) (any, bool) {
	if len(path) == 0 {
		return current, true
	}

	if m, ok := asMap(current); ok {
		// Longest literal key first: dotted keys shadow nested descent.
		for i := len(path); i >= 1; i-- {
			key := path[0]
			if i > 1 {
				key = strings.Join(path[:i], ".")
			}
			next, ok := m[key]
			if !ok {
				continue
			}
			if v, found := resolveRecursive(path[i:], next); found {
				return v, true
			}
		}
		return nil, false
	}

	if list, ok := asList(current); ok {
		idx, err := strconv.Atoi(path[0])
		if err != nil || idx < 0 || idx >= len(list) {
			return nil, false
		}
		return resolveRecursive(path[1:], list[idx])
	}

	// Scalar or null value but path continues
	return nil, false
}
