package device

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/schoetbi/chatterdog/internal/audio"
)

// Format describes the PCM layout shared by capture and playback
type Format struct {
	SampleRate int
	Channels   int
}

// Validate checks that the format can be opened. Only mono is supported.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}

	if f.Channels != 1 {
		return fmt.Errorf("only mono devices are supported, got %d channels", f.Channels)
	}

	return nil
}

// Capture is an opened capture device
type Capture interface {
	audio.Source
	io.Closer
}

// Playback is an opened playback device
type Playback interface {
	audio.Sink
	io.Closer
}

type kind int

const (
	kindDefault kind = iota
	kindWAV
	kindIndex
	kindName
)

// target is a parsed device identifier
type target struct {
	kind  kind
	path  string
	index int
	name  string
}

// parseID resolves an identifier string into a device target
func parseID(id string) (target, error) {
	id = strings.TrimSpace(id)

	switch {
	case id == "":
		return target{}, fmt.Errorf("device identifier is empty")

	case id == "default":
		return target{kind: kindDefault}, nil

	case strings.HasPrefix(id, "wav:"):
		path := strings.TrimPrefix(id, "wav:")
		if path == "" {
			return target{}, fmt.Errorf("wav device %q has no file path", id)
		}
		return target{kind: kindWAV, path: path}, nil
	}

	if index, err := strconv.Atoi(id); err == nil {
		if index < 0 {
			return target{}, fmt.Errorf("device index must not be negative, got %d", index)
		}
		return target{kind: kindIndex, index: index}, nil
	}

	return target{kind: kindName, name: id}, nil
}

// OpenCapture opens the capture device named by id. chunkLength is the
// number of samples the caller will request per read.
func OpenCapture(id string, format Format, chunkLength int, logger *slog.Logger) (Capture, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	if chunkLength <= 0 {
		return nil, fmt.Errorf("chunk length must be positive, got %d", chunkLength)
	}

	if logger == nil {
		logger = slog.Default()
	}

	t, err := parseID(id)
	if err != nil {
		return nil, err
	}

	logger = logger.With(slog.String("device", id), slog.String("direction", "capture"))

	if t.kind == kindWAV {
		src, err := OpenWAVSource(t.path, format)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	c, err := openPortAudioCapture(t, format, chunkLength, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenPlayback opens the playback device named by id
func OpenPlayback(id string, format Format, logger *slog.Logger) (Playback, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	t, err := parseID(id)
	if err != nil {
		return nil, err
	}

	logger = logger.With(slog.String("device", id), slog.String("direction", "playback"))

	if t.kind == kindWAV {
		return NewWAVSink(t.path, format), nil
	}

	p, err := openPortAudioPlayback(t, format, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}
