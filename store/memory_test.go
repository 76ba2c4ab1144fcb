package store

import (
	"reflect"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.Put("t1", []byte("record")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get("t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "record" {
		t.Errorf("expected record, got %q", got)
	}

	if err := s.Delete("t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("t1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteAbsentKey(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Delete("never-stored"); err != nil {
		t.Errorf("expected nil deleting absent key, got %v", err)
	}
}

func TestPutReplaces(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Put("t1", []byte("v1")); err != nil {
		t.Fatalf("put v1: %v", err)
	}
	if err := s.Put("t1", []byte("v2")); err != nil {
		t.Fatalf("put v2: %v", err)
	}
	got, err := s.Get("t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("expected v2, got %q", got)
	}
}

func TestKeysPattern(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	for _, key := range []string{"task.a", "task.b", "other.c"} {
		if err := s.Put(key, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	all, err := s.Keys("*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 keys, got %d", len(all))
	}

	tasks, err := s.Keys("task.*")
	if err != nil {
		t.Fatalf("keys pattern: %v", err)
	}
	want := []string{"task.a", "task.b"}
	if !reflect.DeepEqual(tasks, want) {
		t.Errorf("expected %v, got %v", want, tasks)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Put("t1", []byte("abc")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _ := s.Get("t1")
	got[0] = 'x'

	again, _ := s.Get("t1")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestClosedStore(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := s.Put("t1", []byte("x")); err != ErrClosed {
		t.Errorf("put: expected ErrClosed, got %v", err)
	}
	if _, err := s.Get("t1"); err != ErrClosed {
		t.Errorf("get: expected ErrClosed, got %v", err)
	}
	if _, err := s.Keys("*"); err != ErrClosed {
		t.Errorf("keys: expected ErrClosed, got %v", err)
	}
}

func TestValidateKeyRejections(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	for _, key := range []string{"", "has space", "has\ttab"} {
		if err := s.Put(key, []byte("x")); err != ErrInvalidKey {
			t.Errorf("put %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}
