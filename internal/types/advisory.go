package types

import "time"

// Advisory is a finding produced when a Rule matches a context.
// RuleID always names the rule that produced it.
type Advisory struct {
	ID             string         `json:"id" yaml:"id"`
	RuleID         string         `json:"rule_id" yaml:"rule_id"`
	Title          string         `json:"title" yaml:"title"`
	Description    string         `json:"description" yaml:"description"`
	Severity       Severity       `json:"severity" yaml:"severity"`
	AdvisoryType   AdvisoryType   `json:"advisory_type" yaml:"advisory_type"`
	Message        string         `json:"message" yaml:"message"`
	Recommendation string         `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Tags           []string       `json:"tags" yaml:"tags"`
	Metadata       map[string]any `json:"metadata" yaml:"metadata"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
}

// EvaluationContext is the snapshot of facts a rule set is evaluated against.
// The engine only reads it.
type EvaluationContext struct {
	Data      map[string]any `json:"data" yaml:"data"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Source    string         `json:"source,omitempty" yaml:"source,omitempty"`
	Metadata  map[string]any `json:"metadata" yaml:"metadata"`
}

// NewEvaluationContext wraps data in a context stamped with the current UTC time.
func NewEvaluationContext(data map[string]any) *EvaluationContext {
	if data == nil {
		data = map[string]any{}
	}
	return &EvaluationContext{
		Data:      data,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
}

// RuleError records a rule that could not be evaluated during a pass.
type RuleError struct {
	RuleID string `json:"rule_id" yaml:"rule_id"`
	Error  string `json:"error" yaml:"error"`
}

// EvaluationResult summarizes one evaluation pass.
//
// Advisories follow rule order. RulesMatched always equals len(Advisories).
// Truncated is set when the pass stopped at a deadline; RulesEvaluated then
// counts only the rules actually attempted.
type EvaluationResult struct {
	Advisories       []Advisory         `json:"advisories" yaml:"advisories"`
	RulesEvaluated   int                `json:"rules_evaluated" yaml:"rules_evaluated"`
	RulesMatched     int                `json:"rules_matched" yaml:"rules_matched"`
	EvaluationTimeMs float64            `json:"evaluation_time_ms" yaml:"evaluation_time_ms"`
	Context          *EvaluationContext `json:"context" yaml:"context"`
	RuleErrors       []RuleError        `json:"rule_errors,omitempty" yaml:"rule_errors,omitempty"`
	Truncated        bool               `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}
