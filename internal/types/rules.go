// internal/types/rules.go
package types

/*
 * Rule definitions consumed by internal/rules.
 *
 * Rules and Conditions are supplied by an external rule repository and are
 * read-only to the engine. Field names and enum strings are the wire contract
 * shared with rule storage and dashboards, so json and yaml tags must stay in sync.
 *
 * Key types:
 *   - Condition: one predicate (dotted field path, operator, operand)
 *   - Rule: ordered conjunctive list of Conditions plus advisory template
 *
 * A Rule with zero conditions always matches. Enabled defaults to true when the
 * field is absent from the encoded form.
 */

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// Condition is a single predicate evaluated against context data.
type Condition struct {
	Field       string   `json:"field" yaml:"field"`
	Operator    Operator `json:"operator" yaml:"operator"`
	Value       any      `json:"value" yaml:"value"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Rule describes when an advisory should be raised.
type Rule struct {
	ID             string       `json:"id" yaml:"id"`
	Name           string       `json:"name" yaml:"name"`
	Description    string       `json:"description" yaml:"description"`
	AdvisoryType   AdvisoryType `json:"advisory_type" yaml:"advisory_type"`
	Severity       Severity     `json:"severity" yaml:"severity"`
	Conditions     []Condition  `json:"conditions" yaml:"conditions"`
	Message        string       `json:"message" yaml:"message"`
	Recommendation string       `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Tags           []string     `json:"tags" yaml:"tags"`
	Enabled        bool         `json:"enabled" yaml:"enabled"`
	CreatedAt      time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" yaml:"updated_at"`
}

// ruleFields has Rule's fields without its methods to avoid decode recursion.
type ruleFields Rule

// UnmarshalJSON implements json.Unmarshaler, defaulting Enabled to true.
func (r *Rule) UnmarshalJSON(data []byte) error {
	decoded := ruleFields{Enabled: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Rule(decoded)
	r.normalize()
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler, defaulting Enabled to true.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	decoded := ruleFields{Enabled: true}
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*r = Rule(decoded)
	r.normalize()
	return nil
}

func (r *Rule) normalize() {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Conditions == nil {
		r.Conditions = []Condition{}
	}
}
