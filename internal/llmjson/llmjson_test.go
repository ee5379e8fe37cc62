package llmjson

import (
	"math"
	"testing"
)

func TestDecode(t *testing.T) {
	type payload struct {
		Summary    string  `json:"summary"`
		Confidence float64 `json:"confidence"`
	}

	tests := []struct {
		name string
		raw  string
		want payload
	}{
		{
			"plain json",
			`{"summary": "ok", "confidence": 0.9}`,
			payload{Summary: "ok", Confidence: 0.9},
		},
		{
			"fenced json",
			"```json\n{\"summary\": \"ok\", \"confidence\": 0.9}\n```",
			payload{Summary: "ok", Confidence: 0.9},
		},
		{
			"bare fence",
			"```\n{\"summary\": \"ok\"}\n```",
			payload{Summary: "ok"},
		},
		{
			"surrounding prose",
			`Here is the analysis: {"summary": "ok"} Hope that helps!`,
			payload{Summary: "ok"},
		},
		{
			"raw newline inside string",
			"{\"summary\": \"line one\nline two\"}",
			payload{Summary: "line one\nline two"},
		},
		{
			"bogus escape inside string",
			`{"summary": "100\% sure"}`,
			payload{Summary: "100% sure"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			if err := Decode(tt.raw, &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDecode_InvalidInput(t *testing.T) {
	var v struct{}
	if err := Decode("this is not json at all", &v); err == nil {
		t.Error("expected error for non-JSON input")
	}
}

func TestTrimToJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"object with prose", `sure: {"a": 1} done`, `{"a": 1}`},
		{"array with prose", `topics are ["a", "b"], enjoy`, `["a", "b"]`},
		{"array before object", `[{"a": 1}]`, `[{"a": 1}]`},
		{"no json", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trimToJSON(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want float64
	}{
		{"in range", 0.7, 0.7},
		{"below zero", -0.3, 0},
		{"above one", 1.4, 1},
		{"zero", 0, 0},
		{"one", 1, 1},
		{"nan uses default", math.NaN(), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp01(tt.v, 0.5); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
