// internal/rules/evaluate_test.go
package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/solatis/advisor/internal/types"
)

var fixedTime = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func fixedID() string { return "adv-1" }

func mustCompile(t *testing.T, rule types.Rule) *CompiledRule {
	t.Helper()
	compiled, err := Compile(&rule)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	return compiled
}

func TestEvaluateCondition(t *testing.T) {
	evalCtx := types.NewEvaluationContext(map[string]any{
		"cpu":  95,
		"tier": "gold",
		"user": map[string]any{"roles": []any{"admin", "dev"}},
	})

	tests := []struct {
		name    string
		cond    types.Condition
		want    bool
		wantErr error
	}{
		{"gt match", types.Condition{Field: "cpu", Operator: types.OpGt, Value: 90}, true, nil},
		{"nested contains", types.Condition{Field: "user.roles", Operator: types.OpContains, Value: "admin"}, true, nil},
		{"missing field eq", types.Condition{Field: "memory", Operator: types.OpEq, Value: 1}, false, nil},
		{"missing field ne", types.Condition{Field: "memory", Operator: types.OpNe, Value: 1}, true, nil},
		{"type mismatch is false", types.Condition{Field: "tier", Operator: types.OpGt, Value: 5}, false, nil},
		{"regex", types.Condition{Field: "tier", Operator: types.OpRegex, Value: "^go"}, true, nil},
		{"malformed regex", types.Condition{Field: "tier", Operator: types.OpRegex, Value: "[a-"}, false, types.ErrInvalidPattern},
		{"unsupported operator", types.Condition{Field: "cpu", Operator: "like", Value: 1}, false, types.ErrUnsupportedOperator},
		{"empty field", types.Condition{Field: "", Operator: types.OpEq, Value: 1}, false, types.ErrInvalidFieldPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCondition(tt.cond, evalCtx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("EvaluateCondition() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCondition_NilContext(t *testing.T) {
	_, err := EvaluateCondition(types.Condition{Field: "a", Operator: types.OpEq}, nil)
	if !errors.Is(err, types.ErrNilContext) {
		t.Errorf("EvaluateCondition(nil) error = %v, want ErrNilContext", err)
	}
}

func TestMatch_Advisory(t *testing.T) {
	rule := types.Rule{
		ID:             "r1",
		Name:           "High CPU",
		Description:    "CPU above threshold",
		AdvisoryType:   types.AdvisoryTypePerformance,
		Severity:       types.SeverityCritical,
		Message:        "CPU at {cpu}%",
		Recommendation: "Scale out",
		Tags:           []string{"cpu", "infra"},
		Enabled:        true,
		Conditions: []types.Condition{
			{Field: "cpu", Operator: types.OpGt, Value: 90},
		},
	}
	compiled := mustCompile(t, rule)

	evalCtx := types.NewEvaluationContext(map[string]any{"cpu": 95})
	evalCtx.Source = "agent-7"

	adv, err := Match(compiled, evalCtx, fixedID, fixedClock)
	if err != nil {
		t.Fatalf("Match() error = %v, want nil", err)
	}
	if adv == nil {
		t.Fatal("Match() = nil, want advisory")
	}

	if adv.ID != "adv-1" || adv.RuleID != "r1" {
		t.Errorf("Match() id/rule_id = %s/%s, want adv-1/r1", adv.ID, adv.RuleID)
	}
	if adv.Title != "High CPU" || adv.Description != "CPU above threshold" {
		t.Errorf("Match() title/description = %q/%q", adv.Title, adv.Description)
	}
	if adv.Severity != types.SeverityCritical || adv.AdvisoryType != types.AdvisoryTypePerformance {
		t.Errorf("Match() severity/type = %s/%s", adv.Severity, adv.AdvisoryType)
	}
	if adv.Message != "CPU at 95%" {
		t.Errorf("Match() message = %q, want %q", adv.Message, "CPU at 95%")
	}
	if adv.Recommendation != "Scale out" {
		t.Errorf("Match() recommendation = %q, want Scale out", adv.Recommendation)
	}
	if !adv.CreatedAt.Equal(fixedTime) {
		t.Errorf("Match() created_at = %v, want %v", adv.CreatedAt, fixedTime)
	}

	if adv.Metadata[MetaRuleName] != "High CPU" {
		t.Errorf("Metadata[rule_name] = %v, want High CPU", adv.Metadata[MetaRuleName])
	}
	if adv.Metadata[MetaContextSource] != "agent-7" {
		t.Errorf("Metadata[context_source] = %v, want agent-7", adv.Metadata[MetaContextSource])
	}
	matched, ok := adv.Metadata[MetaMatchedConditions].([]MatchedCondition)
	if !ok || len(matched) != 1 {
		t.Fatalf("Metadata[matched_conditions] = %#v, want one MatchedCondition", adv.Metadata[MetaMatchedConditions])
	}
	if matched[0].Field != "cpu" || matched[0].Actual != 95.0 || matched[0].Expected != 90 {
		t.Errorf("matched_conditions[0] = %+v", matched[0])
	}

	// Tags are copied, never aliased.
	adv.Tags[0] = "mutated"
	if rule.Tags[0] != "cpu" || compiled.Rule.Tags[0] != "cpu" {
		t.Error("Match() aliased rule tags into advisory")
	}
}

func TestMatch_TitleFallsBackToID(t *testing.T) {
	compiled := mustCompile(t, types.Rule{ID: "unnamed", Enabled: true, Tags: []string{}})

	adv, err := Match(compiled, types.NewEvaluationContext(nil), fixedID, fixedClock)
	if err != nil || adv == nil {
		t.Fatalf("Match() = %v, %v, want advisory", adv, err)
	}
	if adv.Title != "unnamed" {
		t.Errorf("Match() title = %q, want unnamed", adv.Title)
	}
	if _, ok := adv.Metadata[MetaContextSource]; ok {
		t.Error("Metadata[context_source] set for context without source")
	}
}

func TestMatch_EmptyConditionsAlwaysMatch(t *testing.T) {
	compiled := mustCompile(t, types.Rule{ID: "always", Enabled: true})

	for _, data := range []map[string]any{nil, {}, {"x": 1}} {
		adv, err := Match(compiled, types.NewEvaluationContext(data), fixedID, fixedClock)
		if err != nil || adv == nil {
			t.Errorf("Match(%v) = %v, %v, want advisory", data, adv, err)
		}
	}
}

func TestMatch_Conjunctive(t *testing.T) {
	compiled := mustCompile(t, types.Rule{
		ID:      "r",
		Enabled: true,
		Conditions: []types.Condition{
			{Field: "a", Operator: types.OpEq, Value: 1},
			{Field: "b", Operator: types.OpEq, Value: 2},
		},
	})

	tests := []struct {
		name string
		data map[string]any
		want bool
	}{
		{"both hold", map[string]any{"a": 1, "b": 2}, true},
		{"first fails", map[string]any{"a": 0, "b": 2}, false},
		{"second fails", map[string]any{"a": 1, "b": 0}, false},
		{"both missing", map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv, err := Match(compiled, types.NewEvaluationContext(tt.data), fixedID, fixedClock)
			if err != nil {
				t.Fatalf("Match() error = %v, want nil", err)
			}
			if (adv != nil) != tt.want {
				t.Errorf("Match() matched = %v, want %v", adv != nil, tt.want)
			}
		})
	}
}

func TestMatch_ShortCircuit(t *testing.T) {
	// The second condition carries an operator that would be fatal if it were
	// ever reached; the first condition fails so it must not be.
	compiled := &CompiledRule{
		Rule: &types.Rule{ID: "sc", Enabled: true},
		Conditions: []CompiledCondition{
			{Field: "a", Path: []string{"a"}, Operator: types.OpEq, Value: 1},
			{Field: "a", Path: []string{"a"}, Operator: "unreachable", Value: 1},
		},
	}

	adv, err := Match(compiled, types.NewEvaluationContext(map[string]any{"a": 2}), fixedID, fixedClock)
	if err != nil || adv != nil {
		t.Errorf("Match() = %v, %v, want nil, nil", adv, err)
	}

	_, err = Match(compiled, types.NewEvaluationContext(map[string]any{"a": 1}), fixedID, fixedClock)
	var engineErr *types.EngineError
	if !errors.As(err, &engineErr) || engineErr.RuleID != "sc" {
		t.Errorf("Match() error = %v, want *EngineError for rule sc", err)
	}
}

func TestMatch_CompiledErrorReturned(t *testing.T) {
	want := &types.RuleEvaluationError{RuleID: "broken", Cause: types.ErrInvalidPattern}
	compiled := &CompiledRule{Rule: &types.Rule{ID: "broken"}, Err: want}

	_, err := Match(compiled, types.NewEvaluationContext(nil), fixedID, fixedClock)
	if err != want {
		t.Errorf("Match() error = %v, want %v", err, want)
	}
}
