// internal/rules/compile.go
package rules

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/solatis/advisor/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles types.Rule to CompiledRule with parsed field paths and pre-compiled
 * regex patterns, so a pass never re-parses paths per condition.
 *
 * Compilation workflow:
 *   1. Validate operator is in the declared set
 *   2. Parse the dotted field path, enforcing MaxPathDepth
 *   3. Compile regex operands, enforcing MaxPatternLength
 *
 * Error classes:
 *   - Unsupported operator: *types.EngineError. The engine has no comparator
 *     for it, so CompileSet aborts.
 *   - Malformed regex, empty field path, path deeper than MaxPathDepth:
 *     *types.RuleEvaluationError. The rule is kept with Err set so the pass
 *     counts it as evaluated, records the error, and moves on.
 *
 * Condition order is preserved exactly; short-circuit follows declared order.
 */

// CompiledCondition is a pre-processed condition ready for evaluation.
type CompiledCondition struct {
	Field    string
	Path     []string
	Operator types.Operator
	Value    any
	Pattern  *regexp.Regexp // regex operator only
}

// CompiledRule pairs a read-only rule with its compiled conditions.
type CompiledRule struct {
	Rule       *types.Rule
	Conditions []CompiledCondition
	Err        error // *types.RuleEvaluationError when the rule cannot be evaluated
}

// RuleSet is an immutable, ordered set of compiled enabled rules. It may be
// evaluated by many passes concurrently.
type RuleSet struct {
	rules []*CompiledRule
}

// Len returns the number of enabled rules in the set.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Rules returns the compiled rules in evaluation order.
func (s *RuleSet) Rules() []*CompiledRule {
	return s.rules
}

// CompileSet filters rules to enabled ones, preserving order, and compiles each.
// Returns the first *types.EngineError encountered.
func CompileSet(rules []types.Rule) (*RuleSet, error) {
	set := &RuleSet{rules: make([]*CompiledRule, 0, len(rules))}
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		compiled, err := Compile(rule)
		if err != nil {
			var engineErr *types.EngineError
			if errors.As(err, &engineErr) {
				return nil, err
			}
			compiled = &CompiledRule{Rule: rule, Err: err}
		}
		set.rules = append(set.rules, compiled)
	}
	return set, nil
}

// Compile validates and pre-processes a rule for evaluation.
func Compile(rule *types.Rule) (*CompiledRule, error) {
	compiled := &CompiledRule{
		Rule:       rule,
		Conditions: make([]CompiledCondition, 0, len(rule.Conditions)),
	}

	for _, cond := range rule.Conditions {
		cc, err := compileCondition(cond)
		if err != nil {
			if errors.Is(err, types.ErrUnsupportedOperator) {
				return nil, &types.EngineError{RuleID: rule.ID, Cause: err}
			}
			return nil, &types.RuleEvaluationError{RuleID: rule.ID, Cause: err}
		}
		compiled.Conditions = append(compiled.Conditions, cc)
	}

	return compiled, nil
}

// compileCondition validates a single condition and pre-compiles its operand.
func compileCondition(cond types.Condition) (CompiledCondition, error) {
	if !cond.Operator.Valid() {
		return CompiledCondition{}, fmt.Errorf("%w: %q", types.ErrUnsupportedOperator, cond.Operator)
	}

	path, err := ParseFieldPath(cond.Field)
	if err != nil {
		return CompiledCondition{}, fmt.Errorf("field %q: %w", cond.Field, err)
	}

	cc := CompiledCondition{
		Field:    cond.Field,
		Path:     path,
		Operator: cond.Operator,
		Value:    cond.Value,
	}

	if cond.Operator == types.OpRegex {
		re, err := compilePattern(cond.Value)
		if err != nil {
			return CompiledCondition{}, fmt.Errorf("field %q: %w", cond.Field, err)
		}
		cc.Pattern = re
	}

	return cc, nil
}

// compilePattern compiles a regex operand.
func compilePattern(value any) (*regexp.Regexp, error) {
	pattern, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: pattern must be a string, got %s", types.ErrInvalidPattern, ValueOf(value).Kind())
	}
	if len(pattern) > types.MaxPatternLength {
		return nil, fmt.Errorf("%w: pattern exceeds %d bytes", types.ErrInvalidPattern, types.MaxPatternLength)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPattern, err)
	}
	return re, nil
}
