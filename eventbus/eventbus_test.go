package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("container:cntr_test0001")

	ev := &Event{Type: "output", Data: "Resolving packages...", CreatedAt: time.Now()}
	bus.Publish("container:cntr_test0001", ev)

	select {
	case got := <-ch:
		if got.Type != "output" || got.Data != "Resolving packages..." {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := New()
	a := bus.Subscribe("chat")
	b := bus.Subscribe("container:other")

	bus.Publish("chat", &Event{Type: "chunk", Data: "hi"})

	select {
	case <-a:
	case <-time.After(time.Second):
		t.Fatal("chat subscriber missed event")
	}
	select {
	case ev := <-b:
		t.Fatalf("wrong topic received event: %+v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("chat")
	bus.Unsubscribe("chat", ch)

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish("chat", &Event{Type: "chunk", Data: "late"})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("chat")

	// Fill the buffer past capacity; overflow is dropped.
	for i := 0; i < 200; i++ {
		bus.Publish("chat", &Event{Type: "chunk", Data: "x"})
	}

	if len(ch) != cap(ch) {
		t.Fatalf("expected full buffer of %d, got %d", cap(ch), len(ch))
	}
}
