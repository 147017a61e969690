package sink

import (
	"testing"
	"time"

	"github.com/meridianops/voyagesim/pkg/core"
)

func TestEmitDrain_Ordered(t *testing.T) {
	s := New()
	for i := uint64(1); i <= 5; i++ {
		s.Emit(core.NewLogEvent(i, "event"))
	}
	if s.Len() != 5 {
		t.Errorf("Len: got %d", s.Len())
	}

	events := s.Drain()
	if len(events) != 5 {
		t.Fatalf("drained %d events", len(events))
	}
	for i, e := range events {
		if e.Step != uint64(i+1) {
			t.Fatalf("emission order violated: %v", events)
		}
	}

	// drain clears the log
	if s.Len() != 0 {
		t.Errorf("Len after drain: got %d", s.Len())
	}
	if len(s.Drain()) != 0 {
		t.Error("second drain returned events")
	}
}

func TestSubscribe_ReceivesInOrder(t *testing.T) {
	s := New()
	sub := s.Subscribe()

	for i := uint64(1); i <= 3; i++ {
		s.Emit(core.NewLogEvent(i, "event"))
	}

	for i := uint64(1); i <= 3; i++ {
		select {
		case e := <-sub:
			if e.Step != i {
				t.Fatalf("got step %d, want %d", e.Step, i)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber starved")
		}
	}
}

func TestSubscribe_PreSubscribeEventsStayDrainable(t *testing.T) {
	s := New()
	s.Emit(core.NewLogEvent(1, "before subscribe"))

	sub := s.Subscribe()
	s.Emit(core.NewLogEvent(2, "after subscribe"))

	// only the post-subscribe event reaches the channel
	e := <-sub
	if e.Step != 2 {
		t.Errorf("subscriber got step %d", e.Step)
	}

	// but both remain in the log
	if got := len(s.Drain()); got != 2 {
		t.Errorf("drained %d events, want 2", got)
	}
}

func TestEmit_OverflowDropsInsteadOfBlocking(t *testing.T) {
	s := New()
	s.Subscribe() // attached but never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < DefaultBufferSize+100; i++ {
			s.Emit(core.NewLogEvent(uint64(i), "flood"))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}

	// the log keeps everything even though the subscriber overflowed
	if got := s.Len(); got != DefaultBufferSize+100 {
		t.Errorf("log kept %d events", got)
	}
}

func TestClose_EmitStaysSafe(t *testing.T) {
	s := New()
	sub := s.Subscribe()
	s.Close()
	s.Close() // idempotent

	// channel is closed
	if _, ok := <-sub; ok {
		t.Error("subscriber channel still open")
	}

	// emitting after close only appends
	s.Emit(core.NewLogEvent(1, "after close"))
	if s.Len() != 1 {
		t.Errorf("Len: got %d", s.Len())
	}
}
