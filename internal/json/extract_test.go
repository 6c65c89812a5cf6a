package json

import (
	"strings"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"pure JSON", `{"name": "test", "value": 42}`},
		{"prefixed prose", `Here is the result: {"name": "test", "value": 42}`},
		{"suffixed prose", `{"name": "test", "value": 42} That's the output.`},
		{"surrounded", `Let me think... {"name": "test", "value": 42} Done!`},
		{"json fence", "```json\n{\"name\": \"test\", \"value\": 42}\n```"},
		{"bare fence", "```\n{\"name\": \"test\", \"value\": 42}\n```"},
	}
	for _, tt := range tests {
		result, err := Parse[payload](tt.response)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if result.Name != "test" || result.Value != 42 {
			t.Errorf("%s: got %+v", tt.name, result)
		}
	}
}

func TestDecodePointer(t *testing.T) {
	var out payload
	if err := Decode(`noise {"name": "n", "value": 7} noise`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value != 7 {
		t.Errorf("got %+v", out)
	}
}

func TestParseNoJSON(t *testing.T) {
	_, err := Parse[payload]("This is just plain text without any JSON.")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no valid JSON object") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse[payload](`{"name": "test", value: }`)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
