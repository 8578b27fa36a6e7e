package rules

import (
	"math"
	"testing"
	"time"
)

func TestTextOf(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string unchanged", "abc", "abc"},
		{"integral float", 95.0, "95"},
		{"fraction", 0.25, "0.25"},
		{"int", 123, "123"},
		{"negative", -7, "-7"},
		{"int64 above 2^53", int64(1<<53 + 1), "9007199254740993"},
		{"uint64 above MaxInt64", uint64(math.MaxUint64), "18446744073709551615"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"time", ts, "2026-01-02T03:04:05Z"},
		{"list", []any{"a", 1.0}, `["a",1]`},
		{"map", map[string]any{"k": "v"}, `{"k":"v"}`},
		{"absent", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textOf(ValueOf(tt.value))
			if got != tt.want {
				t.Errorf("textOf(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestTimeOf(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if got, ok := timeOf(ValueOf(ts)); !ok || !got.Equal(ts) {
		t.Errorf("timeOf(time) = %v, %v, want %v, true", got, ok, ts)
	}
	if got, ok := timeOf(ValueOf("2026-01-02T03:04:05Z")); !ok || !got.Equal(ts) {
		t.Errorf("timeOf(RFC3339 string) = %v, %v, want %v, true", got, ok, ts)
	}
	if _, ok := timeOf(ValueOf("yesterday")); ok {
		t.Error("timeOf(non-timestamp string) ok = true, want false")
	}
	if _, ok := timeOf(ValueOf(5)); ok {
		t.Error("timeOf(number) ok = true, want false")
	}
}
