//go:build debug

package channel

// New returns an unbuffered channel in debug builds, ignoring size. With
// no buffer, backpressure bugs between the sink and its consumer surface
// immediately instead of hiding behind queued events.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
