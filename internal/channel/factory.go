//go:build !debug

package channel

// New returns the channel the event sink subscribes through. Production
// builds buffer it so a slow storage backend cannot stall the tick loop.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
