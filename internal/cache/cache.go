package cache

import (
	"sync"
)

// DistanceCache caches computed route distances keyed by route ID, so
// repeated session configuration against the same route does not recompute
// the great-circle sum over every segment.
type DistanceCache struct {
	m         sync.Mutex
	distances map[string]float64
}

func NewDistanceCache() *DistanceCache {
	return &DistanceCache{
		distances: make(map[string]float64),
	}
}

func (c *DistanceCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.distances = make(map[string]float64)
}

func (c *DistanceCache) Get(routeID string) (float64, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if d, ok := c.distances[routeID]; ok {
		return d, true
	}
	return 0, false
}

func (c *DistanceCache) Set(routeID string, distanceNM float64) {
	c.m.Lock()
	defer c.m.Unlock()
	c.distances[routeID] = distanceNM
}

// GetOrCompute returns the cached distance for the route, computing and
// storing it on a miss. compute runs outside the lock window of other keys
// but holders of the same key may race; last write wins, which is fine since
// the computation is deterministic.
func (c *DistanceCache) GetOrCompute(routeID string, compute func() float64) float64 {
	if d, ok := c.Get(routeID); ok {
		return d
	}
	d := compute()
	c.Set(routeID, d)
	return d
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
