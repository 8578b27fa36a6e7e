// Package types provides the advisory data model shared across advisor components.
//
// The enum types (Severity, AdvisoryType, Operator) are the persisted/transmitted
// contract: their string values must never change. Decoding rejects unknown values so
// a malformed rule never reaches the engine with an operator it cannot evaluate.
package types

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Severity ranks how urgent an advisory is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Rank orders severities low=1 through critical=4. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Severity) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, s, ErrInvalidSeverity)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	return decodeYAMLEnum(node, s, ErrInvalidSeverity)
}

// AdvisoryType classifies the concern an advisory addresses.
type AdvisoryType string

const (
	AdvisoryTypeSecurity     AdvisoryType = "security"
	AdvisoryTypePerformance  AdvisoryType = "performance"
	AdvisoryTypeMaintenance  AdvisoryType = "maintenance"
	AdvisoryTypeCompliance   AdvisoryType = "compliance"
	AdvisoryTypeBestPractice AdvisoryType = "best_practice"
)

// Valid reports whether t is one of the declared advisory types.
func (t AdvisoryType) Valid() bool {
	switch t {
	case AdvisoryTypeSecurity, AdvisoryTypePerformance, AdvisoryTypeMaintenance,
		AdvisoryTypeCompliance, AdvisoryTypeBestPractice:
		return true
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *AdvisoryType) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, t, ErrInvalidAdvisoryType)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *AdvisoryType) UnmarshalYAML(node *yaml.Node) error {
	return decodeYAMLEnum(node, t, ErrInvalidAdvisoryType)
}

// Operator is a condition comparison operator.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpRegex       Operator = "regex"
)

// Operators lists every declared operator in declaration order.
var Operators = []Operator{
	OpEq, OpNe, OpGt, OpGte, OpLt, OpLte,
	OpContains, OpNotContains, OpIn, OpNotIn, OpRegex,
}

// Valid reports whether op is one of the declared operators.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON implements json.Unmarshaler.
func (op *Operator) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, op, ErrInvalidOperator)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (op *Operator) UnmarshalYAML(node *yaml.Node) error {
	return decodeYAMLEnum(node, op, ErrInvalidOperator)
}

type enum interface {
	~string
	Valid() bool
}

func decodeEnum[E enum](data []byte, dst *E, invalid error) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", invalid, err)
	}
	return setEnum(s, dst, invalid)
}

func decodeYAMLEnum[E enum](node *yaml.Node, dst *E, invalid error) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("%w: %v", invalid, err)
	}
	return setEnum(s, dst, invalid)
}

func setEnum[E enum](s string, dst *E, invalid error) error {
	v := E(s)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", invalid, s)
	}
	*dst = v
	return nil
}

// Resource limits enforced by the rule engine.
const (
	// MaxPathDepth bounds field path resolution so self-referential context data
	// cannot drive resolution without end.
	MaxPathDepth = 16

	// MaxPatternLength bounds regex condition patterns.
	MaxPatternLength = 1024
)
