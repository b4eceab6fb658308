// Package mock provides scripted implementations of [audio.Source] and
// [audio.Sink] for unit tests.
//
// Both mocks are safe for concurrent use. They record every call so tests can
// assert on call counts and arguments, and expose fields that control the
// returned values.
//
// Typical usage:
//
//	src := &mock.Source{Chunks: [][]int16{loud, quiet}}
//	sink := &mock.Sink{FailWrites: 1}
package mock

import (
	"errors"
	"fmt"
	"sync"

	"github.com/schoetbi/chatterdog/internal/audio"
)

// ErrWriteFailed is the default error returned by failing Sink writes.
var ErrWriteFailed = errors.New("mock: write failed")

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a scripted [audio.Source].
type Source struct {
	mu sync.Mutex

	// Chunks are delivered in order, one per Read. A chunk shorter than the
	// request is reported as a short read.
	Chunks [][]int16

	// Loop restarts the script from the first chunk once it is exhausted.
	// Without Loop an exhausted script is a short read.
	Loop bool

	// ReadError, when set, is returned by every Read.
	ReadError error

	// ResetError is returned by Reset.
	ResetError error

	// CallCountRead records how many times Read was called.
	CallCountRead int

	// CallCountReset records how many times Reset was called.
	CallCountReset int

	// RequestedLengths records the length of every Read request.
	RequestedLengths []int

	next int
}

// Read implements [audio.Source].
func (s *Source) Read(dst []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCountRead++
	s.RequestedLengths = append(s.RequestedLengths, len(dst))

	if s.ReadError != nil {
		return s.ReadError
	}

	if s.next >= len(s.Chunks) {
		if !s.Loop || len(s.Chunks) == 0 {
			return fmt.Errorf("%w: script exhausted after %d chunks", audio.ErrShortRead, len(s.Chunks))
		}
		s.next = 0
	}

	chunk := s.Chunks[s.next]
	s.next++

	if n := copy(dst, chunk); n < len(dst) {
		return fmt.Errorf("%w: got %d of %d samples", audio.ErrShortRead, n, len(dst))
	}
	return nil
}

// Reset implements [audio.Source].
func (s *Source) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountReset++
	return s.ResetError
}

// Reads returns the number of Read calls so far.
func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountRead
}

// ─── Sink ─────────────────────────────────────────────────────────────────────

// Sink is a recording [audio.Sink].
type Sink struct {
	mu sync.Mutex

	// FailWrites is the number of upcoming writes that fail. Each failure
	// decrements it.
	FailWrites int

	// WriteError is returned by failing writes. Defaults to [ErrWriteFailed].
	WriteError error

	// ResetError is returned by Reset.
	ResetError error

	// Written holds a copy of every successful write, in order.
	Written [][]int16

	// AttemptedLengths records the length of every Write call, failed or not.
	AttemptedLengths []int

	// CallCountWrite records how many times Write was called.
	CallCountWrite int

	// CallCountReset records how many times Reset was called.
	CallCountReset int
}

// Write implements [audio.Sink].
func (s *Sink) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCountWrite++
	s.AttemptedLengths = append(s.AttemptedLengths, len(samples))

	if s.FailWrites > 0 {
		s.FailWrites--
		if s.WriteError != nil {
			return s.WriteError
		}
		return ErrWriteFailed
	}

	written := make([]int16, len(samples))
	copy(written, samples)
	s.Written = append(s.Written, written)
	return nil
}

// Reset implements [audio.Sink].
func (s *Sink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountReset++
	return s.ResetError
}

// Writes returns a snapshot of the successful writes.
func (s *Sink) Writes() [][]int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]int16, len(s.Written))
	copy(out, s.Written)
	return out
}
