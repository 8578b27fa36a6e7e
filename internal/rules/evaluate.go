// internal/rules/evaluate.go
package rules

import (
	"errors"
	"time"

	"github.com/solatis/advisor/internal/types"
)

/*
 * Condition evaluation and rule matching.
 *
 * Evaluation flow per rule:
 *   1. Rule compiled with Err set -> return that RuleEvaluationError
 *   2. Conditions in declared order; short-circuit on first non-match
 *   3. Per-condition: resolve path -> compare operator
 *   4. TypeMismatch -> condition does not match (not an error)
 *   5. All conditions hold (or none declared) -> build Advisory
 *
 * Matched conditions are recorded in Advisory.Metadata["matched_conditions"]
 * so every advisory explains which field values triggered it.
 */

// Clock returns the current time for advisory timestamps.
type Clock func() time.Time

// IDSource mints advisory identifiers.
type IDSource func() string

// Metadata keys written on every advisory.
const (
	MetaRuleName          = "rule_name"
	MetaMatchedConditions = "matched_conditions"
	MetaContextSource     = "context_source"
)

// MatchedCondition explains one satisfied condition.
type MatchedCondition struct {
	Field    string         `json:"field"`
	Operator types.Operator `json:"operator"`
	Expected any            `json:"expected"`
	Actual   any            `json:"actual"`
}

// EvaluateCondition resolves cond.Field in evalCtx and applies the operator.
// Incompatible operand kinds yield false. Only an unsupported operator or a
// malformed field path or pattern returns an error.
func EvaluateCondition(cond types.Condition, evalCtx *types.EvaluationContext) (bool, error) {
	if evalCtx == nil {
		return false, types.ErrNilContext
	}
	cc, err := compileCondition(cond)
	if err != nil {
		return false, err
	}
	matched, _, err := evaluateCompiled(&cc, evalCtx.Data)
	return matched, err
}

// evaluateCompiled evaluates a compiled condition and returns the resolved
// actual value for diagnostics.
func evaluateCompiled(cond *CompiledCondition, data map[string]any) (bool, Value, error) {
	actual := Resolve(cond.Path, data)

	if cond.Pattern != nil {
		return matchPattern(cond.Pattern, actual), actual, nil
	}

	matched, err := Compare(cond.Operator, actual, cond.Value)
	if err != nil {
		if errors.Is(err, types.ErrTypeMismatch) {
			return false, actual, nil
		}
		return false, actual, err
	}
	return matched, actual, nil
}

// Match evaluates every condition of rule against evalCtx (conjunctive) and
// returns an Advisory on match, or nil when the rule does not match.
//
// Errors are *types.RuleEvaluationError (rule skipped, pass continues) or
// *types.EngineError (pass aborts).
func Match(rule *CompiledRule, evalCtx *types.EvaluationContext, newID IDSource, now Clock) (*types.Advisory, error) {
	if rule.Err != nil {
		return nil, rule.Err
	}

	matched := make([]MatchedCondition, 0, len(rule.Conditions))
	for i := range rule.Conditions {
		cond := &rule.Conditions[i]
		ok, actual, err := evaluateCompiled(cond, evalCtx.Data)
		if err != nil {
			if errors.Is(err, types.ErrUnsupportedOperator) {
				return nil, &types.EngineError{RuleID: rule.Rule.ID, Cause: err}
			}
			return nil, &types.RuleEvaluationError{RuleID: rule.Rule.ID, Cause: err}
		}
		if !ok {
			return nil, nil
		}
		matched = append(matched, MatchedCondition{
			Field:    cond.Field,
			Operator: cond.Operator,
			Expected: cond.Value,
			Actual:   actual.Interface(),
		})
	}

	return newAdvisory(rule.Rule, evalCtx, matched, newID, now), nil
}

// newAdvisory materializes an advisory for a matched rule.
func newAdvisory(rule *types.Rule, evalCtx *types.EvaluationContext, matched []MatchedCondition, newID IDSource, now Clock) *types.Advisory {
	title := rule.Name
	if title == "" {
		title = rule.ID
	}

	tags := make([]string, len(rule.Tags))
	copy(tags, rule.Tags)

	metadata := map[string]any{
		MetaRuleName:          rule.Name,
		MetaMatchedConditions: matched,
	}
	if evalCtx.Source != "" {
		metadata[MetaContextSource] = evalCtx.Source
	}

	return &types.Advisory{
		ID:             newID(),
		RuleID:         rule.ID,
		Title:          title,
		Description:    rule.Description,
		Severity:       rule.Severity,
		AdvisoryType:   rule.AdvisoryType,
		Message:        RenderMessage(rule.Message, evalCtx.Data),
		Recommendation: rule.Recommendation,
		Tags:           tags,
		Metadata:       metadata,
		CreatedAt:      now(),
	}
}
