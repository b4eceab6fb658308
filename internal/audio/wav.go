package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrInvalidWAV is returned for data that is not a mono PCM16 RIFF/WAVE file
var ErrInvalidWAV = errors.New("invalid WAV data")

// wavFormat is the body of the "fmt " chunk
type wavFormat struct {
	AudioFormat   uint16 // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
}

// WAVInfo describes a decoded WAV file
type WAVInfo struct {
	SampleRate    int           `json:"sample_rate"`
	Channels      int           `json:"channels"`
	BitsPerSample int           `json:"bits_per_sample"`
	NumSamples    int           `json:"num_samples"`
	Duration      time.Duration `json:"duration"`
}

// WriteWAV writes samples as a mono 16-bit PCM WAV stream
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	format := wavFormat{
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
	}

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36) + dataSize,
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		format,
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("failed to write WAV header: %w", err)
		}
	}

	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	return nil
}

// ReadWAV decodes a mono 16-bit PCM WAV stream. Chunks other than "fmt " and
// "data" are skipped.
func ReadWAV(r io.Reader) ([]int16, *WAVInfo, error) {
	var riff struct {
		ID     [4]byte
		Size   uint32
		Format [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, nil, fmt.Errorf("%w: reading RIFF header: %w", ErrInvalidWAV, err)
	}
	if string(riff.ID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return nil, nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var format *wavFormat
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
			}
			return nil, nil, fmt.Errorf("%w: reading chunk header: %w", ErrInvalidWAV, err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if chunk.Size < 16 {
				return nil, nil, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrInvalidWAV, chunk.Size)
			}
			format = &wavFormat{}
			if err := binary.Read(r, binary.LittleEndian, format); err != nil {
				return nil, nil, fmt.Errorf("%w: reading fmt chunk: %w", ErrInvalidWAV, err)
			}
			if err := skip(r, int64(chunk.Size-16)+int64(chunk.Size%2)); err != nil {
				return nil, nil, err
			}
			if err := checkFormat(format); err != nil {
				return nil, nil, err
			}

		case "data":
			if format == nil {
				return nil, nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			samples := make([]int16, chunk.Size/2)
			if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
				return nil, nil, fmt.Errorf("%w: reading audio samples: %w", ErrInvalidWAV, err)
			}
			info := &WAVInfo{
				SampleRate:    int(format.SampleRate),
				Channels:      int(format.NumChannels),
				BitsPerSample: int(format.BitsPerSample),
				NumSamples:    len(samples),
				Duration:      time.Duration(len(samples)) * time.Second / time.Duration(format.SampleRate),
			}
			return samples, info, nil

		default:
			if err := skip(r, int64(chunk.Size)+int64(chunk.Size%2)); err != nil {
				return nil, nil, err
			}
		}
	}
}

// EncodeWAV encodes samples into an in-memory WAV file
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := WriteWAV(buf, samples, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWAV decodes an in-memory WAV file
func DecodeWAV(data []byte) ([]int16, *WAVInfo, error) {
	return ReadWAV(bytes.NewReader(data))
}

func checkFormat(f *wavFormat) error {
	if f.AudioFormat != 1 {
		return fmt.Errorf("%w: unsupported audio format %d (only PCM is supported)", ErrInvalidWAV, f.AudioFormat)
	}

	if f.BitsPerSample != 16 {
		return fmt.Errorf("%w: unsupported bit depth %d (only 16-bit is supported)", ErrInvalidWAV, f.BitsPerSample)
	}

	if f.NumChannels != 1 {
		return fmt.Errorf("%w: unsupported channel count %d (only mono is supported)", ErrInvalidWAV, f.NumChannels)
	}

	if f.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate is zero", ErrInvalidWAV)
	}

	return nil
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("%w: skipping %d bytes: %w", ErrInvalidWAV, n, err)
	}
	return nil
}
