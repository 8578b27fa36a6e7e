package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for advisor operations.
var (
	// ErrTypeMismatch indicates operands of incompatible kinds for an operator.
	ErrTypeMismatch = errors.New("incompatible operand types")

	// ErrUnsupportedOperator indicates an operator with no comparator implementation.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrInvalidPattern indicates a regex condition whose pattern does not compile.
	ErrInvalidPattern = errors.New("invalid regex pattern")

	// ErrInvalidFieldPath indicates an empty field path or one with empty segments.
	ErrInvalidFieldPath = errors.New("invalid field path")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth. Like other
	// malformed paths it fails only the rule that declares it.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrNilContext indicates an evaluation was requested without a context.
	ErrNilContext = errors.New("evaluation context is nil")

	// ErrInvalidSeverity indicates an unknown severity string.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrInvalidAdvisoryType indicates an unknown advisory type string.
	ErrInvalidAdvisoryType = errors.New("invalid advisory type")

	// ErrInvalidOperator indicates an unknown operator string.
	ErrInvalidOperator = errors.New("invalid operator")
)

// TypeMismatchError reports the operand kinds an operator could not compare.
// Local to one condition: the condition evaluator treats it as a non-match.
type TypeMismatchError struct {
	Operator Operator
	Actual   string
	Expected string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("operator %s cannot compare %s with %s", e.Operator, e.Actual, e.Expected)
}

// Unwrap returns ErrTypeMismatch.
func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// RuleEvaluationError reports a rule that could not be evaluated, such as one
// with a malformed regex. The rule contributes no advisory and the pass continues.
type RuleEvaluationError struct {
	RuleID string
	Cause  error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleEvaluationError) Unwrap() error {
	return e.Cause
}

// EngineError is a fatal fault that aborts an evaluation pass. It points at a
// programming or configuration defect rather than a data condition.
type EngineError struct {
	RuleID string
	Cause  error
}

func (e *EngineError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("engine error: %v", e.Cause)
	}
	return fmt.Sprintf("engine error in rule %s: %v", e.RuleID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}
