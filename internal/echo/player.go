package echo

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schoetbi/chatterdog/internal/audio"
	"github.com/schoetbi/chatterdog/internal/metrics"
)

// ErrPlaybackFailed is returned when every playback attempt failed
var ErrPlaybackFailed = errors.New("playback failed")

// Player writes a compressed run to a Sink, resetting the sink and retrying
// after a failed write.
type Player struct {
	sink    audio.Sink
	retries int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPlayer creates a player that retries a failed write up to retries times
func NewPlayer(sink audio.Sink, retries int, logger *slog.Logger, m *metrics.Metrics) (*Player, error) {
	if sink == nil {
		return nil, fmt.Errorf("playback sink is required")
	}

	if retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", retries)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		sink:    sink,
		retries: retries,
		logger:  logger,
		metrics: m,
	}, nil
}

// Play writes samples. The returned error wraps ErrPlaybackFailed and the
// last device error; callers log it and carry on.
func (p *Player) Play(samples []int16) error {
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			p.metrics.RecordPlaybackRetry()
			if err := p.sink.Reset(); err != nil {
				p.logger.Warn("Failed to reset playback device",
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()),
				)
			}
		}

		p.metrics.RecordPlaybackAttempt()
		err := p.sink.Write(samples)
		if err == nil {
			p.metrics.RecordPlaybackFinished(time.Since(start).Seconds(), false)
			return nil
		}

		lastErr = err
		if attempt < p.retries {
			p.logger.Warn("Playback failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("samples", len(samples)),
				slog.String("error", err.Error()),
			)
		}
	}

	p.metrics.RecordPlaybackFinished(time.Since(start).Seconds(), true)
	return fmt.Errorf("%w after %d attempts: %w", ErrPlaybackFailed, p.retries+1, lastErr)
}
