package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

func TestPublish_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []plugin.Event
	bus.Subscribe("readings.stored", func(ctx context.Context, e plugin.Event) {
		got = append(got, e)
	})

	evt := plugin.Event{
		Topic:     "readings.stored",
		Source:    "ingest",
		Timestamp: time.Now(),
		Payload:   42,
	}
	if err := bus.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Source != "ingest" || got[0].Payload != 42 {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestPublish_TopicIsolation(t *testing.T) {
	bus := NewBus(zap.NewNop())

	called := false
	bus.Subscribe("topic.a", func(ctx context.Context, e plugin.Event) {
		called = true
	})

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "topic.b"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if called {
		t.Error("handler for topic.a received event on topic.b")
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())

	count := 0
	unsub := bus.Subscribe("t", func(ctx context.Context, e plugin.Event) {
		count++
	})

	ctx := context.Background()
	bus.Publish(ctx, plugin.Event{Topic: "t"})
	unsub()
	bus.Publish(ctx, plugin.Event{Topic: "t"})

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
}

func TestPublish_HandlerPanicContained(t *testing.T) {
	bus := NewBus(zap.NewNop())

	bus.Subscribe("t", func(ctx context.Context, e plugin.Event) {
		panic("handler bug")
	})

	after := false
	bus.Subscribe("t", func(ctx context.Context, e plugin.Event) {
		after = true
	})

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "t"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !after {
		t.Error("panic in one handler blocked delivery to the next")
	}
}

func TestPublishAsync_DeliversEventually(t *testing.T) {
	bus := NewBus(zap.NewNop())

	done := make(chan plugin.Event, 1)
	bus.Subscribe("t", func(ctx context.Context, e plugin.Event) {
		done <- e
	})

	bus.PublishAsync(context.Background(), plugin.Event{Topic: "t", Source: "test"})

	select {
	case e := <-done:
		if e.Source != "test" {
			t.Errorf("Source = %q, want %q", e.Source, "test")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async delivery timed out")
	}
}

func TestBus_ConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe("t", func(ctx context.Context, e plugin.Event) {})
			unsub()
		}()
		go func() {
			defer wg.Done()
			bus.Publish(ctx, plugin.Event{Topic: "t"})
		}()
	}
	wg.Wait()
}
