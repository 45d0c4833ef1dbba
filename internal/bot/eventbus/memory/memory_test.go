package memory

import (
	"context"
	"testing"
)

func TestPublishFansOutPerTopic(t *testing.T) {
	bus := New()
	a := make(chan any, 1)
	b := make(chan any, 1)
	other := make(chan any, 1)

	if _, err := bus.Subscribe("bot.events", a); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := bus.Subscribe("bot.events", b); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := bus.Subscribe("other", other); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(context.Background(), "bot.events", "hello"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for _, ch := range []chan any{a, b} {
		if got := <-ch; got != "hello" {
			t.Fatalf("unexpected payload %v", got)
		}
	}
	if len(other) != 0 {
		t.Fatalf("other topic must not receive the event")
	}
}

func TestPublishDropsForFullSubscriber(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	if _, err := bus.Subscribe("t", ch); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := bus.Publish(context.Background(), "t", i); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if bus.Dropped() != 2 {
		t.Fatalf("expected 2 dropped, got %d", bus.Dropped())
	}
	if got := <-ch; got != 0 {
		t.Fatalf("expected first event to be kept, got %v", got)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := New()
	first := make(chan any, 1)
	second := make(chan any, 1)
	unsubscribe, _ := bus.Subscribe("t", first)
	if _, err := bus.Subscribe("t", second); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	unsubscribe()
	unsubscribe()
	if n := bus.Subscribers("t"); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
	_ = bus.Publish(context.Background(), "t", "x")
	if len(first) != 0 || len(second) != 1 {
		t.Fatalf("delivery after unsubscribe: first=%d second=%d", len(first), len(second))
	}
}

func TestSubscribeRejectsNil(t *testing.T) {
	if _, err := New().Subscribe("t", nil); err == nil {
		t.Fatalf("expected error for nil channel")
	}
}

func TestPublishCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Publish(ctx, "t", 1); err == nil {
		t.Fatalf("expected context error")
	}
}
