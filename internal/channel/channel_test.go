package channel

import (
	"testing"
	"time"
)

func TestBuffered_SendReceive(t *testing.T) {
	c := NewBuffered[int](4)
	defer c.Close()

	c.Send(1)
	c.Send(2)
	if c.Len() != 2 {
		t.Errorf("Len: got %d", c.Len())
	}

	if v := <-c.Receive(); v != 1 {
		t.Errorf("got %d, want 1", v)
	}
	if v := <-c.Receive(); v != 2 {
		t.Errorf("got %d, want 2", v)
	}
}

func TestBuffered_TrySendDropsOnFull(t *testing.T) {
	c := NewBuffered[int](2)
	defer c.Close()

	if !c.TrySend(1) || !c.TrySend(2) {
		t.Fatal("TrySend rejected with buffer space available")
	}
	if c.TrySend(3) {
		t.Error("TrySend accepted on a full buffer")
	}

	// the buffered values are intact
	if v := <-c.Receive(); v != 1 {
		t.Errorf("got %d, want 1", v)
	}
	// and capacity freed by the receive is usable again
	if !c.TrySend(4) {
		t.Error("TrySend rejected after space was freed")
	}
}

func TestUnbuffered_TrySend(t *testing.T) {
	c := NewUnbuffered[string]()
	defer c.Close()

	// no receiver ready: must not block
	if c.TrySend("dropped") {
		t.Error("TrySend accepted with no receiver")
	}

	done := make(chan string, 1)
	go func() {
		done <- <-c.Receive()
	}()
	// give the receiver a moment to park
	time.Sleep(10 * time.Millisecond)
	if !c.TrySend("delivered") {
		t.Fatal("TrySend rejected with a waiting receiver")
	}
	select {
	case v := <-done:
		if v != "delivered" {
			t.Errorf("got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver never got the value")
	}
}

func TestNew_ReturnsUsableChannel(t *testing.T) {
	c := New[int](8)
	defer c.Close()
	c.Send(42)
	if v := <-c.Receive(); v != 42 {
		t.Errorf("got %d", v)
	}
}
