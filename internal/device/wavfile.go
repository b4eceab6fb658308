package device

import (
	"fmt"
	"os"
	"sync"

	"github.com/schoetbi/chatterdog/internal/audio"
)

// WAVSource replays a mono PCM16 file as a capture device. Reset does not
// rewind; the file is consumed once.
type WAVSource struct {
	samples []int16
	pos     int
}

// OpenWAVSource loads path. The file's sample rate must match format.
func OpenWAVSource(path string, format Format) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav source: %w", err)
	}
	defer f.Close()

	samples, info, err := audio.ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if info.SampleRate != format.SampleRate {
		return nil, fmt.Errorf("%s has sample rate %d, expected %d", path, info.SampleRate, format.SampleRate)
	}

	return &WAVSource{samples: samples}, nil
}

// NewWAVSource returns a source over in-memory samples
func NewWAVSource(samples []int16) *WAVSource {
	return &WAVSource{samples: samples}
}

// Read copies the next len(dst) samples. Running out of file is a short read.
func (s *WAVSource) Read(dst []int16) error {
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	if n < len(dst) {
		return fmt.Errorf("%w: end of file after %d of %d samples", audio.ErrShortRead, n, len(dst))
	}
	return nil
}

func (s *WAVSource) Reset() error { return nil }

// Remaining returns the number of unread samples
func (s *WAVSource) Remaining() int {
	return len(s.samples) - s.pos
}

func (s *WAVSource) Close() error { return nil }

// WAVSink collects everything played and writes it to a file on Close
type WAVSink struct {
	path       string
	sampleRate int

	mu      sync.Mutex
	samples []int16
	closed  bool
}

// NewWAVSink creates a sink that writes to path on Close
func NewWAVSink(path string, format Format) *WAVSink {
	return &WAVSink{path: path, sampleRate: format.SampleRate}
}

func (s *WAVSink) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("wav sink %s is closed", s.path)
	}
	s.samples = append(s.samples, samples...)
	return nil
}

func (s *WAVSink) Reset() error { return nil }

// Samples returns a copy of everything written so far
func (s *WAVSink) Samples() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int16, len(s.samples))
	copy(out, s.samples)
	return out
}

// Close encodes the collected samples into the target file
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.path, err)
	}

	if err := audio.WriteWAV(f, s.samples, s.sampleRate); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
