package audio

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when a requested region does not fit the buffer
var ErrOutOfBounds = errors.New("region outside buffer")

// Buffer is the single fixed-capacity sample store shared by capture,
// compression and playback. It is allocated once and never resized. Only one
// stage touches it at a time, so it carries no lock.
type Buffer struct {
	samples []int16
}

// NewBuffer allocates a zero-filled buffer of the given capacity
func NewBuffer(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer capacity must be positive, got %d", capacity)
	}

	return &Buffer{samples: make([]int16, capacity)}, nil
}

// Capacity returns the fixed number of samples the buffer holds
func (b *Buffer) Capacity() int {
	return len(b.samples)
}

// Reset zero-fills the whole buffer, not only the previously used prefix, so
// stale samples never reach detection or playback.
func (b *Buffer) Reset() {
	clear(b.samples)
}

// Window returns the writable view [offset, offset+length)
func (b *Buffer) Window(offset, length int) ([]int16, error) {
	if offset < 0 || length < 0 || offset+length > len(b.samples) {
		return nil, fmt.Errorf("%w: offset=%d length=%d capacity=%d",
			ErrOutOfBounds, offset, length, len(b.samples))
	}

	return b.samples[offset : offset+length : offset+length], nil
}

// Prefix returns the view [0, n)
func (b *Buffer) Prefix(n int) ([]int16, error) {
	return b.Window(0, n)
}
