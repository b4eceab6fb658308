package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/schoetbi/chatterdog/internal/audio"
)

// playbackFrames is the block size of playback streams
const playbackFrames = 1024

var (
	paMu    sync.Mutex
	paUsers int
)

// acquire initializes PortAudio for the first open stream
func acquire() error {
	paMu.Lock()
	defer paMu.Unlock()

	if paUsers == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize portaudio: %w", err)
		}
	}
	paUsers++
	return nil
}

// release terminates PortAudio once the last stream is closed
func release() error {
	paMu.Lock()
	defer paMu.Unlock()

	if paUsers == 0 {
		return nil
	}
	paUsers--
	if paUsers == 0 {
		return portaudio.Terminate()
	}
	return nil
}

// Terminate shuts PortAudio down regardless of open streams. Call it once on
// process exit.
func Terminate() error {
	paMu.Lock()
	defer paMu.Unlock()

	if paUsers == 0 {
		return nil
	}
	paUsers = 0
	return portaudio.Terminate()
}

// lookup resolves a target to a PortAudio device
func lookup(t target, input bool) (*portaudio.DeviceInfo, error) {
	if t.kind == kindDefault {
		if input {
			return portaudio.DefaultInputDevice()
		}
		return portaudio.DefaultOutputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	var info *portaudio.DeviceInfo
	switch t.kind {
	case kindIndex:
		if t.index >= len(devices) {
			return nil, fmt.Errorf("device index %d out of range (%d devices)", t.index, len(devices))
		}
		info = devices[t.index]
	case kindName:
		for _, d := range devices {
			if d.Name == t.name {
				info = d
				break
			}
		}
		if info == nil {
			return nil, fmt.Errorf("no device named %q", t.name)
		}
	}

	if input && info.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", info.Name)
	}
	if !input && info.MaxOutputChannels < 1 {
		return nil, fmt.Errorf("device %q has no output channels", info.Name)
	}

	return info, nil
}

// paCapture is a blocking PortAudio input stream
type paCapture struct {
	stream  *portaudio.Stream
	frames  []int16 // stream buffer, one chunk long
	pending []int16 // frames read but not yet delivered
	running bool
	logger  *slog.Logger
}

func openPortAudioCapture(t target, format Format, chunkLength int, logger *slog.Logger) (*paCapture, error) {
	if err := acquire(); err != nil {
		return nil, err
	}

	info, err := lookup(t, true)
	if err != nil {
		release()
		return nil, err
	}

	frames := make([]int16, chunkLength*format.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: format.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: chunkLength,
	}

	stream, err := portaudio.OpenStream(params, frames)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to open input stream on %q: %w", info.Name, err)
	}

	logger.Info("Capture device opened",
		slog.String("name", info.Name),
		slog.Int("sample_rate", format.SampleRate),
		slog.Int("chunk_length", chunkLength),
	)

	return &paCapture{stream: stream, frames: frames, logger: logger}, nil
}

// Read blocks until dst is full
func (c *paCapture) Read(dst []int16) error {
	if !c.running {
		if err := c.stream.Start(); err != nil {
			return fmt.Errorf("failed to start input stream: %w", err)
		}
		c.running = true
	}

	filled := copy(dst, c.pending)
	c.pending = c.pending[filled:]

	for filled < len(dst) {
		if err := c.stream.Read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return fmt.Errorf("%w: got %d of %d samples: %w", audio.ErrShortRead, filled, len(dst), err)
			}
			// the buffer still holds valid samples
			c.logger.Warn("Input overflow, samples were dropped")
		}

		n := copy(dst[filled:], c.frames)
		filled += n
		if n < len(c.frames) {
			c.pending = append(c.pending[:0], c.frames[n:]...)
		}
	}

	return nil
}

// Reset stops the stream and discards its backlog. The next Read restarts it.
func (c *paCapture) Reset() error {
	c.pending = c.pending[:0]
	if !c.running {
		return nil
	}
	c.running = false
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

func (c *paCapture) Close() error {
	var errs []error
	if c.running {
		errs = append(errs, c.stream.Abort())
		c.running = false
	}
	errs = append(errs, c.stream.Close(), release())
	return errors.Join(errs...)
}

// paPlayback is a blocking PortAudio output stream
type paPlayback struct {
	stream  *portaudio.Stream
	frames  []int16
	running bool
	logger  *slog.Logger
}

func openPortAudioPlayback(t target, format Format, logger *slog.Logger) (*paPlayback, error) {
	if err := acquire(); err != nil {
		return nil, err
	}

	info, err := lookup(t, false)
	if err != nil {
		release()
		return nil, err
	}

	frames := make([]int16, playbackFrames*format.Channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: format.Channels,
			Latency:  info.DefaultHighOutputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: playbackFrames,
	}

	stream, err := portaudio.OpenStream(params, frames)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to open output stream on %q: %w", info.Name, err)
	}

	logger.Info("Playback device opened",
		slog.String("name", info.Name),
		slog.Int("sample_rate", format.SampleRate),
	)

	return &paPlayback{stream: stream, frames: frames, logger: logger}, nil
}

// Write blocks until every sample has been handed to the device. The last
// block is padded with silence.
func (p *paPlayback) Write(samples []int16) error {
	if !p.running {
		if err := p.stream.Start(); err != nil {
			return fmt.Errorf("failed to start output stream: %w", err)
		}
		p.running = true
	}

	for len(samples) > 0 {
		n := copy(p.frames, samples)
		clear(p.frames[n:])
		samples = samples[n:]

		if err := p.stream.Write(); err != nil {
			if !errors.Is(err, portaudio.OutputUnderflowed) {
				return fmt.Errorf("failed to write output stream: %w", err)
			}
			p.logger.Warn("Output underflow")
		}
	}

	return nil
}

// Reset stops the stream so the next Write starts from a clean state
func (p *paPlayback) Reset() error {
	if !p.running {
		return nil
	}
	p.running = false
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop output stream: %w", err)
	}
	return nil
}

func (p *paPlayback) Close() error {
	var errs []error
	if p.running {
		// Stop drains queued output
		errs = append(errs, p.stream.Stop())
		p.running = false
	}
	errs = append(errs, p.stream.Close(), release())
	return errors.Join(errs...)
}
