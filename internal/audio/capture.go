package audio

import (
	"fmt"
	"log/slog"

	"github.com/schoetbi/chatterdog/internal/metrics"
	"github.com/schoetbi/chatterdog/internal/vad"
)

// Capturer reads fixed-size chunks from a Source into the shared buffer for
// as long as the detector classifies them as active.
type Capturer struct {
	source      Source
	detector    *vad.Detector
	chunkLength int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewCapturer creates a chunked capturer
func NewCapturer(source Source, detector *vad.Detector, chunkLength int,
	logger *slog.Logger, m *metrics.Metrics) (*Capturer, error) {

	if source == nil {
		return nil, fmt.Errorf("capture source is required")
	}

	if detector == nil {
		return nil, fmt.Errorf("detector is required")
	}

	if chunkLength <= 0 {
		return nil, fmt.Errorf("chunk length must be positive, got %d", chunkLength)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Capturer{
		source:      source,
		detector:    detector,
		chunkLength: chunkLength,
		logger:      logger,
		metrics:     m,
	}, nil
}

// ChunkLength returns the number of samples read per chunk
func (c *Capturer) ChunkLength() int {
	return c.chunkLength
}

// CaptureUntilSilence reads chunks into buf starting at offset zero until a
// chunk is inactive or the next chunk would not fit. It returns the number of
// samples in complete active chunks, a multiple of the chunk length strictly
// below the buffer capacity. The inactive chunk stays in the buffer but is not
// counted. Any read failure is returned and must be treated as fatal.
func (c *Capturer) CaptureUntilSilence(buf *Buffer) (int, error) {
	if c.chunkLength >= buf.Capacity() {
		return 0, fmt.Errorf("%w: chunk length %d does not fit capacity %d",
			ErrOutOfBounds, c.chunkLength, buf.Capacity())
	}

	chunkIndex := 0
	for {
		window, err := buf.Window(chunkIndex*c.chunkLength, c.chunkLength)
		if err != nil {
			return 0, err
		}

		if err := c.source.Read(window); err != nil {
			c.metrics.RecordCaptureError()
			return 0, fmt.Errorf("read chunk %d: %w", chunkIndex, err)
		}

		result := c.detector.Detect(window)
		c.metrics.RecordChunk(result.HasSignal, result.ActiveCount)

		if !result.HasSignal {
			if err := c.source.Reset(); err != nil {
				c.logger.Warn("Failed to reset capture device",
					slog.String("error", err.Error()),
				)
			}
			break
		}

		chunkIndex++
		c.logger.Debug("Active chunk captured",
			slog.Int("chunk", chunkIndex),
			slog.Int("active_count", result.ActiveCount),
		)

		if (chunkIndex+1)*c.chunkLength >= buf.Capacity() {
			c.logger.Debug("Buffer full, stopping capture",
				slog.Int("chunks", chunkIndex),
			)
			break
		}
	}

	noiseLen := chunkIndex * c.chunkLength
	if noiseLen > 0 {
		c.metrics.RecordCapture(noiseLen)
	}

	return noiseLen, nil
}
