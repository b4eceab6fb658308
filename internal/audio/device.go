package audio

import "errors"

// ErrShortRead is returned when a capture device delivers fewer samples than
// requested. Capture treats it as fatal.
var ErrShortRead = errors.New("short read from capture device")

// Source is a blocking capture device.
type Source interface {
	// Read fills dst completely or returns an error. Partial delivery must be
	// reported as an error wrapping ErrShortRead.
	Read(dst []int16) error

	// Reset discards any backlog and returns the device to a ready state.
	Reset() error
}

// Sink is a blocking playback device.
type Sink interface {
	// Write emits all of samples or returns an error.
	Write(samples []int16) error

	// Reset returns the device to a ready state after a failed write.
	Reset() error
}
