package events

import (
	"testing"
	"time"
)

func TestNotifierDeliversPerTable(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe("tracking")
	defer cancel()

	n.Notify("tasks")
	n.Notify("tracking")

	select {
	case table := <-ch:
		if table != "tracking" {
			t.Fatalf("got %q, want tracking", table)
		}
	case <-time.After(time.Second):
		t.Fatal("no signal delivered")
	}
	select {
	case table := <-ch:
		t.Fatalf("unexpected extra signal %q", table)
	default:
	}
}

func TestNotifierNeverBlocksOnSlowSubscriber(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe("clients")
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Nobody drains; buffered sends are dropped once full.
		for i := 0; i < 100; i++ {
			n.Notify("clients")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a slow subscriber")
	}
}

func TestCancelRemovesSubscription(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe("clients")
	cancel()
	n.Notify("clients")
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("signal delivered after cancel")
		}
	default:
	}
}
