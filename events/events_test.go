package events

import (
	"reflect"
	"testing"

	"github.com/irtaza129/datashare/codec"
)

func TestEncodeDecodeProgress(t *testing.T) {
	e := Progress{Task: "t1", Rate: 0.5}

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	p, ok := got.(Progress)
	if !ok {
		t.Fatalf("Expected Progress, got %T", got)
	}
	if p.Task != "t1" || p.Rate != 0.5 {
		t.Errorf("Round trip mismatch: %+v", p)
	}
}

func TestEncodeDecodeResultWithStructuredValue(t *testing.T) {
	e := Result{Task: "t2", Value: map[string]interface{}{"count": 3.0, "ids": []interface{}{"a", "b"}}}

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	r, ok := got.(Result)
	if !ok {
		t.Fatalf("Expected Result, got %T", got)
	}
	if !reflect.DeepEqual(r.Value, e.Value) {
		t.Errorf("Value mismatch: got %#v, want %#v", r.Value, e.Value)
	}
	if _, failed := r.Failure(); failed {
		t.Error("Plain result should not report a failure")
	}
}

func TestEncodeDecodeResultWithFailure(t *testing.T) {
	e := Result{Task: "t3", Value: &codec.Failure{Message: "scan aborted"}}

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	r := got.(Result)
	f, failed := r.Failure()
	if !failed {
		t.Fatal("Expected the decoded result to carry a failure")
	}
	if f.Message != "scan aborted" {
		t.Errorf("Unexpected failure message: %s", f.Message)
	}
}

func TestEncodeDecodeCancelPair(t *testing.T) {
	for _, e := range []Event{
		Cancel{Task: "t4", Requeue: true},
		Canceled{Task: "t4", Requeue: true},
	} {
		data, err := Encode(e)
		if err != nil {
			t.Fatalf("Encode %s failed: %v", e.Kind(), err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode %s failed: %v", e.Kind(), err)
		}
		if got.Kind() != e.Kind() {
			t.Errorf("Kind mismatch: got %s, want %s", got.Kind(), e.Kind())
		}
		if got.TaskID() != "t4" {
			t.Errorf("Task id mismatch: %s", got.TaskID())
		}
	}

	// Requeue flag survives for both variants
	data, _ := Encode(Canceled{Task: "t5", Requeue: true})
	got, _ := Decode(data)
	if c, ok := got.(Canceled); !ok || !c.Requeue {
		t.Errorf("Requeue flag lost: %#v", got)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"explode","task_id":"t1"}`)); err == nil {
		t.Error("Expected error for unknown event kind")
	}
}

func TestDecodeRejectsMissingTaskID(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"progress","rate":0.1}`)); err == nil {
		t.Error("Expected error for event without task id")
	}
}
