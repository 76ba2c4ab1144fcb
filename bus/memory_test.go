package bus

import (
	"testing"
	"time"

	"github.com/irtaza129/datashare/errors"
)

func TestPublishWithoutOpenChannel(t *testing.T) {
	b := NewMemoryBus(DefaultOptions())
	defer b.Close()

	err := b.Publish("tasks:queue", []byte("x"))
	if err == nil {
		t.Fatal("expected error publishing on unopened channel")
	}
	if !errors.Is(err, errors.ErrCodeUnknownChannel) {
		t.Errorf("expected UNKNOWN_CHANNEL, got %v", err)
	}
}

func TestPublishAndConsume(t *testing.T) {
	b := NewMemoryBus(DefaultOptions())
	defer b.Close()

	if err := b.OpenPublishChannel("tasks:queue"); err != nil {
		t.Fatalf("open publish channel: %v", err)
	}
	ch, err := b.OpenConsumeChannel("tasks:queue")
	if err != nil {
		t.Fatalf("open consume channel: %v", err)
	}
	defer ch.Close()

	if err := b.Publish("tasks:queue", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch.Messages():
		if string(msg.Data) != "hello" {
			t.Errorf("expected hello, got %q", msg.Data)
		}
		if msg.Queue != "tasks:queue" {
			t.Errorf("expected queue tasks:queue, got %q", msg.Queue)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestFanOutToAllConsumers(t *testing.T) {
	b := NewMemoryBus(DefaultOptions())
	defer b.Close()

	if err := b.OpenPublishChannel("events"); err != nil {
		t.Fatalf("open publish channel: %v", err)
	}
	first, err := b.OpenConsumeChannel("events")
	if err != nil {
		t.Fatalf("open first consumer: %v", err)
	}
	second, err := b.OpenConsumeChannel("events")
	if err != nil {
		t.Fatalf("open second consumer: %v", err)
	}
	defer first.Close()
	defer second.Close()

	if err := b.Publish("events", []byte("e1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, ch := range []*ConsumerChannel{first, second} {
		select {
		case msg := <-ch.Messages():
			if string(msg.Data) != "e1" {
				t.Errorf("consumer %d: expected e1, got %q", ch.Number(), msg.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("consumer %d: timed out", ch.Number())
		}
	}
}

func TestConsumerNumbersAreSequential(t *testing.T) {
	b := NewMemoryBus(DefaultOptions())
	defer b.Close()

	if err := b.OpenPublishChannel("q"); err != nil {
		t.Fatalf("open publish channel: %v", err)
	}
	first, _ := b.OpenConsumeChannel("q")
	second, _ := b.OpenConsumeChannel("q")
	defer first.Close()
	defer second.Close()

	if first.Number() != 1 || second.Number() != 2 {
		t.Errorf("expected numbers 1 and 2, got %d and %d", first.Number(), second.Number())
	}
}

func TestOverflowGoesToDeadLetter(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxInFlight = 1
	b := NewMemoryBus(opts)
	defer b.Close()

	if err := b.OpenPublishChannel("q"); err != nil {
		t.Fatalf("open publish channel: %v", err)
	}
	slow, err := b.OpenConsumeChannel("q")
	if err != nil {
		t.Fatalf("open consumer: %v", err)
	}
	defer slow.Close()
	dead, err := b.OpenConsumeChannel(opts.DeadLetter)
	if err != nil {
		t.Fatalf("open dead-letter consumer: %v", err)
	}
	defer dead.Close()

	// First fills the in-flight budget, second overflows.
	if err := b.Publish("q", []byte("m1")); err != nil {
		t.Fatalf("publish m1: %v", err)
	}
	if err := b.Publish("q", []byte("m2")); err != nil {
		t.Fatalf("publish m2: %v", err)
	}

	select {
	case msg := <-dead.Messages():
		if string(msg.Data) != "m2" {
			t.Errorf("expected m2 on dead-letter, got %q", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dead-letter delivery")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewMemoryBus(DefaultOptions())
	defer b.Close()

	if err := b.OpenPublishChannel("q"); err != nil {
		t.Fatalf("open publish channel: %v", err)
	}
	ch, err := b.OpenConsumeChannel("q")
	if err != nil {
		t.Fatalf("open consumer: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("close consumer: %v", err)
	}

	if err := b.Publish("q", []byte("late")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if msg, ok := <-ch.Messages(); ok {
		t.Errorf("expected closed channel, got %q", msg.Data)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewMemoryBus(DefaultOptions())
	if err := b.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := b.Publish("q", nil); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestValidateQueueID(t *testing.T) {
	for _, id := range []string{"", "has space", "has\ttab", "has\nnewline"} {
		if err := ValidateQueueID(id); err == nil {
			t.Errorf("expected rejection for %q", id)
		}
	}
	for _, id := range []string{"tasks:queue", "events", "dead-letter"} {
		if err := ValidateQueueID(id); err != nil {
			t.Errorf("unexpected rejection for %q: %v", id, err)
		}
	}
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxInFlight = 1
	b := NewMemoryBus(opts)
	defer b.Close()

	if err := b.OpenPublishChannel("q"); err != nil {
		t.Fatalf("open publish channel: %v", err)
	}

	// Publishing must never send on a channel a concurrent close tore
	// down. Run enough rounds to give the race detector a chance.
	for i := 0; i < 500; i++ {
		ch, err := b.OpenConsumeChannel("q")
		if err != nil {
			t.Fatalf("open consume channel: %v", err)
		}

		done := make(chan struct{})
		go func() {
			for j := 0; j < 20; j++ {
				_ = b.Publish("q", []byte("payload"))
			}
			close(done)
		}()

		if err := ch.Close(); err != nil {
			t.Fatalf("close consumer channel: %v", err)
		}
		<-done
	}
}
