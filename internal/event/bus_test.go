package event

import (
	"sync"
	"testing"
)

func TestBus_SubscribePublish(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(TypeOpening, func(e Event) {
		got = append(got, e.EventType())
	})

	bus.Publish(NewOpeningEvent("redis-server"))
	bus.Publish(NewCloseEvent("redis-server")) // no subscriber, dropped

	if len(got) != 1 || got[0] != TypeOpening {
		t.Errorf("handler received %v, want [%s]", got, TypeOpening)
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.SubscribeAll(func(e Event) {
		got = append(got, e.EventType())
	})

	bus.Publish(NewOpeningEvent("srv"))
	bus.Publish(NewOpenEvent("srv", 42))
	bus.Publish(NewClosingEvent("srv"))
	bus.Publish(NewCloseEvent("srv"))

	want := []string{TypeOpening, TypeOpen, TypeClosing, TypeClose}
	if len(got) != len(want) {
		t.Fatalf("received %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBus_SpecificBeforeWildcard(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(Event) { order = append(order, "wildcard") })
	bus.Subscribe(TypeStdout, func(Event) { order = append(order, "specific") })

	bus.Publish(NewStdoutEvent("srv", "ready\n"))

	if len(order) != 2 || order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("dispatch order = %v, want [specific wildcard]", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe(TypeOpen, func(Event) { calls++ })

	bus.Publish(NewOpenEvent("srv", 1))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	bus.Publish(NewOpenEvent("srv", 1))

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}

	if bus.Unsubscribe("sub-does-not-exist") {
		t.Error("Unsubscribe(unknown) = true, want false")
	}
}

func TestBus_PanickingHandler(t *testing.T) {
	bus := NewBus()

	called := false
	bus.Subscribe(TypeClose, func(Event) { panic("boom") })
	bus.Subscribe(TypeClose, func(Event) { called = true })

	// Must not panic, and the second handler must still run.
	bus.Publish(NewCloseEvent("srv"))

	if !called {
		t.Error("handler after panicking handler was not called")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(NewStdoutEvent("srv", "chunk"))
			}
		}()
	}
	wg.Wait()

	if count != 1000 {
		t.Errorf("handler called %d times, want 1000", count)
	}
}

func TestBus_SubscriptionCount(t *testing.T) {
	bus := NewBus()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}

	bus.Subscribe(TypeOpen, func(Event) {})
	bus.SubscribeAll(func(Event) {})
	if bus.SubscriptionCount() != 2 {
		t.Errorf("SubscriptionCount() = %d, want 2", bus.SubscriptionCount())
	}

	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", bus.SubscriptionCount())
	}
}
