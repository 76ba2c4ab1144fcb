package codec

import (
	"fmt"
	"reflect"
	"testing"
)

func TestEncodeDecodePlainValues(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"string", "hello", "hello"},
		{"number", 3.5, 3.5},
		{"bool", true, true},
		{"null", nil, nil},
		{"sequence", []interface{}{"a", 1.0, false}, []interface{}{"a", 1.0, false}},
		{
			"nested map",
			map[string]interface{}{"dataDir": "/x", "opts": map[string]interface{}{"depth": 2.0}},
			map[string]interface{}{"dataDir": "/x", "opts": map[string]interface{}{"depth": 2.0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Round trip mismatch: got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFailureRoundTrip(t *testing.T) {
	f := &Failure{
		Message: "scan aborted",
		Cause:   &Failure{Message: "permission denied"},
	}

	data, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	back, ok := got.(*Failure)
	if !ok {
		t.Fatalf("Expected *Failure, got %T", got)
	}
	if back.Message != "scan aborted" {
		t.Errorf("Unexpected message: %s", back.Message)
	}
	if back.Cause == nil || back.Cause.Message != "permission denied" {
		t.Errorf("Cause chain not preserved: %+v", back.Cause)
	}
}

func TestFailureNestedInsideMap(t *testing.T) {
	in := map[string]interface{}{
		"outcome": &Failure{Message: "index write failed"},
		"count":   3.0,
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected map, got %T", got)
	}
	if _, ok := m["outcome"].(*Failure); !ok {
		t.Errorf("Expected nested *Failure to be rebuilt, got %T", m["outcome"])
	}
	if m["count"] != 3.0 {
		t.Errorf("Plain sibling value damaged: %v", m["count"])
	}
}

func TestDecodeRejectsUnregisteredHint(t *testing.T) {
	_, err := Decode([]byte(`{"@type":"no-such-kind","@value":{}}`))
	if err == nil {
		t.Error("Expected error for unregistered type hint")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	if err == nil {
		t.Error("Expected error for malformed input")
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode of empty input failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for empty input, got %#v", got)
	}
}

func TestFailureFromErrorChain(t *testing.T) {
	inner := fmt.Errorf("disk full")
	outer := fmt.Errorf("writing segment: %w", inner)

	f := FailureFrom(outer)
	if f == nil {
		t.Fatal("Expected a failure")
	}
	if f.Message != "writing segment" {
		t.Errorf("Expected deduplicated head message, got %q", f.Message)
	}
	if f.Cause == nil || f.Cause.Message != "disk full" {
		t.Errorf("Cause not captured: %+v", f.Cause)
	}
	if f.Error() != "writing segment: disk full" {
		t.Errorf("Unexpected flattened message: %s", f.Error())
	}
}

func TestFailureFromNil(t *testing.T) {
	if FailureFrom(nil) != nil {
		t.Error("FailureFrom(nil) should be nil")
	}
}
