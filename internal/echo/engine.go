package echo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schoetbi/chatterdog/internal/audio"
	"github.com/schoetbi/chatterdog/internal/metrics"
)

// State is the phase the engine is currently in
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateCompressing
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateCompressing:
		return "compressing"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CycleResult describes one capture/compress/play iteration
type CycleResult struct {
	ID            string        `json:"id"`
	NoiseLen      int           `json:"noise_len"`
	CompressedLen int           `json:"compressed_len"`
	Played        bool          `json:"played"`
	PlaybackErr   error         `json:"-"`
	Duration      time.Duration `json:"duration"`
}

// Stats is a snapshot of engine counters
type Stats struct {
	Cycles          uint64    `json:"cycles"`
	SilentCycles    uint64    `json:"silent_cycles"`
	PlayedCycles    uint64    `json:"played_cycles"`
	FailedPlaybacks uint64    `json:"failed_playbacks"`
	LastCycle       time.Time `json:"last_cycle"`
	State           string    `json:"state"`
}

// Engine owns the shared buffer and drives the echo loop
type Engine struct {
	buffer     *audio.Buffer
	capturer   *audio.Capturer
	compressor *audio.Compressor
	player     *Player
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu    sync.RWMutex
	state State
	stats Stats
}

// NewEngine wires the loop components together. The buffer must be able to
// hold more than one chunk.
func NewEngine(buffer *audio.Buffer, capturer *audio.Capturer, compressor *audio.Compressor,
	player *Player, logger *slog.Logger, m *metrics.Metrics) (*Engine, error) {

	if buffer == nil || capturer == nil || compressor == nil || player == nil {
		return nil, fmt.Errorf("buffer, capturer, compressor and player are required")
	}

	if capturer.ChunkLength() >= buffer.Capacity() {
		return nil, fmt.Errorf("chunk length %d must be less than buffer capacity %d",
			capturer.ChunkLength(), buffer.Capacity())
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		buffer:     buffer,
		capturer:   capturer,
		compressor: compressor,
		player:     player,
		logger:     logger,
		metrics:    m,
	}, nil
}

// RunCycle zero-fills the buffer, captures until silence and, when anything
// was captured, compresses and plays it. Only capture errors are returned; a
// playback failure is reported in the result.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{ID: uuid.NewString()}
	start := time.Now()
	logger := e.logger.With(slog.String("cycle_id", result.ID))

	e.metrics.RecordCycleStarted()
	logger.Info("Cycle started")

	e.buffer.Reset()

	e.setState(StateCapturing)
	noiseLen, err := e.capturer.CaptureUntilSilence(e.buffer)
	if err != nil {
		e.setState(StateIdle)
		return result, fmt.Errorf("capture failed: %w", err)
	}
	result.NoiseLen = noiseLen

	if noiseLen == 0 {
		result.Duration = time.Since(start)
		e.finishCycle(result, true)
		return result, nil
	}

	logger.Info("Noise captured", slog.Int("samples", noiseLen))

	e.setState(StateCompressing)
	run, err := e.buffer.Prefix(noiseLen)
	if err != nil {
		e.setState(StateIdle)
		return result, err
	}
	result.CompressedLen = e.compressor.Compress(run)
	e.metrics.RecordCompression(result.CompressedLen)

	e.setState(StatePlaying)
	if err := e.player.Play(run[:result.CompressedLen]); err != nil {
		result.PlaybackErr = err
		logger.Error("Playback failed, continuing",
			slog.Int("samples", result.CompressedLen),
			slog.String("error", err.Error()),
		)
	} else {
		result.Played = true
		logger.Info("Played",
			slog.Int("noise_samples", noiseLen),
			slog.Int("played_samples", result.CompressedLen),
		)
	}

	result.Duration = time.Since(start)
	e.finishCycle(result, false)
	return result, nil
}

// Run repeats RunCycle until a capture error or until ctx is cancelled. The
// context is checked between cycles only.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Echo loop started",
		slog.Int("buffer_capacity", e.buffer.Capacity()),
		slog.Int("chunk_length", e.capturer.ChunkLength()),
		slog.Float64("ratio", e.compressor.Ratio()),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Echo loop stopped")
			return nil
		default:
		}

		if _, err := e.RunCycle(ctx); err != nil {
			return err
		}
	}
}

// GetStats returns a snapshot of the engine counters
func (e *Engine) GetStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := e.stats
	stats.State = e.state.String()
	return stats
}

// State returns the current engine phase
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.metrics.SetEngineState(int(s))
}

func (e *Engine) finishCycle(result CycleResult, silent bool) {
	e.mu.Lock()
	e.state = StateIdle
	e.stats.Cycles++
	e.stats.LastCycle = time.Now()
	switch {
	case silent:
		e.stats.SilentCycles++
	case result.Played:
		e.stats.PlayedCycles++
	default:
		e.stats.FailedPlaybacks++
	}
	e.mu.Unlock()

	e.metrics.SetEngineState(int(StateIdle))
	e.metrics.RecordCycleFinished(result.Duration.Seconds(), silent)
}
