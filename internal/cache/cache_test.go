package cache

import (
	"sync"
	"testing"
)

func TestDistanceCache_GetSet(t *testing.T) {
	c := NewDistanceCache()

	if _, ok := c.Get("boston-porto"); ok {
		t.Error("hit on empty cache")
	}

	c.Set("boston-porto", 2900.5)
	d, ok := c.Get("boston-porto")
	if !ok || d != 2900.5 {
		t.Errorf("got (%v, %v)", d, ok)
	}

	c.Reset()
	if _, ok := c.Get("boston-porto"); ok {
		t.Error("hit after reset")
	}
}

func TestDistanceCache_GetOrCompute(t *testing.T) {
	c := NewDistanceCache()
	calls := 0
	compute := func() float64 {
		calls++
		return 1234.0
	}

	if d := c.GetOrCompute("r1", compute); d != 1234.0 {
		t.Errorf("got %v", d)
	}
	if d := c.GetOrCompute("r1", compute); d != 1234.0 {
		t.Errorf("got %v", d)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times", calls)
	}
}

func TestSafeCounter_Concurrent(t *testing.T) {
	var c SafeCounter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	if c.Value() != 5000 {
		t.Errorf("got %d, want 5000", c.Value())
	}

	c.Set(7)
	if c.Value() != 7 {
		t.Errorf("got %d after Set", c.Value())
	}
}
