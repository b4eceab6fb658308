package echo

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoetbi/chatterdog/internal/audio"
	"github.com/schoetbi/chatterdog/internal/device/mock"
	"github.com/schoetbi/chatterdog/internal/metrics"
	"github.com/schoetbi/chatterdog/internal/vad"
)

func loud(n int, base int16) []int16 {
	chunk := make([]int16, n)
	for i := range chunk {
		chunk[i] = base + int16(i)
	}
	return chunk
}

func quiet(n int) []int16 {
	return make([]int16, n)
}

type fixture struct {
	engine  *Engine
	buffer  *audio.Buffer
	source  *mock.Source
	sink    *mock.Sink
	metrics *metrics.Metrics
}

// newFixture builds an engine with capacity 100, chunk 10, threshold 50,
// minimum active count 3 and ratio 1.4.
func newFixture(t *testing.T, source *mock.Source, sink *mock.Sink) *fixture {
	t.Helper()

	m := metrics.NewMetrics(prometheus.NewRegistry())

	buffer, err := audio.NewBuffer(100)
	require.NoError(t, err)

	detector, err := vad.NewDetector(50, 3)
	require.NoError(t, err)

	capturer, err := audio.NewCapturer(source, detector, 10, nil, m)
	require.NoError(t, err)

	compressor, err := audio.NewCompressor(1.4)
	require.NoError(t, err)

	player, err := NewPlayer(sink, 1, nil, m)
	require.NoError(t, err)

	engine, err := NewEngine(buffer, capturer, compressor, player, nil, m)
	require.NoError(t, err)

	return &fixture{engine: engine, buffer: buffer, source: source, sink: sink, metrics: m}
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)

	buffer, err := audio.NewBuffer(10)
	require.NoError(t, err)
	detector, err := vad.NewDetector(50, 3)
	require.NoError(t, err)
	capturer, err := audio.NewCapturer(&mock.Source{}, detector, 10, nil, nil)
	require.NoError(t, err)
	compressor, err := audio.NewCompressor(1.4)
	require.NoError(t, err)
	player, err := NewPlayer(&mock.Sink{}, 1, nil, nil)
	require.NoError(t, err)

	_, err = NewEngine(buffer, capturer, compressor, player, nil, nil)
	assert.Error(t, err, "chunk length equal to capacity must be rejected")
}

func TestCycleCapturesCompressesAndPlays(t *testing.T) {
	f := newFixture(t,
		&mock.Source{Chunks: [][]int16{loud(10, 100), quiet(10)}},
		&mock.Sink{},
	)

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 10, result.NoiseLen)
	assert.Equal(t, 7, result.CompressedLen)
	assert.True(t, result.Played)
	assert.NoError(t, result.PlaybackErr)

	writes := f.sink.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []int16{100, 101, 103, 104, 106, 107, 108}, writes[0])

	stats := f.engine.GetStats()
	assert.Equal(t, uint64(1), stats.Cycles)
	assert.Equal(t, uint64(1), stats.PlayedCycles)
	assert.Equal(t, "idle", stats.State)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PlaybackAttempts))
}

func TestCycleSilentSkipsPlayback(t *testing.T) {
	f := newFixture(t,
		&mock.Source{Chunks: [][]int16{quiet(10)}},
		&mock.Sink{},
	)

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.NoiseLen)
	assert.Equal(t, 0, result.CompressedLen)
	assert.False(t, result.Played)
	assert.Equal(t, 0, f.sink.CallCountWrite)

	stats := f.engine.GetStats()
	assert.Equal(t, uint64(1), stats.SilentCycles)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SilentCycles))
}

func TestCycleShortReadIsFatal(t *testing.T) {
	f := newFixture(t,
		&mock.Source{Chunks: [][]int16{loud(10, 100), loud(4, 100)}},
		&mock.Sink{},
	)

	_, err := f.engine.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrShortRead)
	assert.Equal(t, 0, f.sink.CallCountWrite)
	assert.Equal(t, StateIdle, f.engine.State())
}

func TestCyclePlaybackRetrySucceeds(t *testing.T) {
	f := newFixture(t,
		&mock.Source{Chunks: [][]int16{loud(10, 100), quiet(10)}},
		&mock.Sink{FailWrites: 1},
	)

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Played)
	assert.Equal(t, 1, f.sink.CallCountReset)
	assert.Equal(t, []int{7, 7}, f.sink.AttemptedLengths)
	assert.Len(t, f.sink.Writes(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PlaybackRetries))
}

func TestCyclePlaybackFailureIsNotFatal(t *testing.T) {
	f := newFixture(t,
		&mock.Source{Chunks: [][]int16{loud(10, 100), quiet(10), loud(10, 200), quiet(10)}},
		&mock.Sink{FailWrites: 2},
	)

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Played)
	assert.ErrorIs(t, result.PlaybackErr, ErrPlaybackFailed)
	assert.ErrorIs(t, result.PlaybackErr, mock.ErrWriteFailed)
	assert.Equal(t, 2, f.sink.CallCountWrite)

	// the next cycle plays normally
	result, err = f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Played)

	stats := f.engine.GetStats()
	assert.Equal(t, uint64(2), stats.Cycles)
	assert.Equal(t, uint64(1), stats.FailedPlaybacks)
	assert.Equal(t, uint64(1), stats.PlayedCycles)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PlaybackFailures))
}

func TestCycleZeroFillsBuffer(t *testing.T) {
	f := newFixture(t,
		&mock.Source{Chunks: [][]int16{
			loud(10, 100), loud(10, 200), loud(10, 300), quiet(10),
			quiet(10),
		}},
		&mock.Sink{},
	)

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, result.NoiseLen)

	result, err = f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.NoiseLen)

	all, err := f.buffer.Prefix(100)
	require.NoError(t, err)
	for i, s := range all {
		if s != 0 {
			t.Fatalf("sample %d from the previous cycle survived: %d", i, s)
		}
	}
}

func TestRunStopsOnCaptureError(t *testing.T) {
	f := newFixture(t,
		&mock.Source{Chunks: [][]int16{loud(10, 100), quiet(10), quiet(10)}},
		&mock.Sink{},
	)

	err := f.engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrShortRead)

	stats := f.engine.GetStats()
	assert.Equal(t, uint64(2), stats.Cycles)
	assert.Equal(t, uint64(1), stats.PlayedCycles)
	assert.Equal(t, uint64(1), stats.SilentCycles)
}

func TestRunReturnsOnCancel(t *testing.T) {
	f := newFixture(t, &mock.Source{Chunks: [][]int16{quiet(10)}, Loop: true}, &mock.Sink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.engine.Run(ctx))
	assert.Equal(t, 0, f.source.Reads())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "capturing", StateCapturing.String())
	assert.Equal(t, "compressing", StateCompressing.String())
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "state(9)", State(9).String())
}
