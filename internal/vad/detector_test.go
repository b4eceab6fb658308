package vad

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(n int, value int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func TestHasSignal(t *testing.T) {
	tests := []struct {
		name           string
		samples        []int16
		threshold      int16
		minActiveCount int
		want           bool
	}{
		{
			name:           "empty window",
			samples:        nil,
			threshold:      0,
			minActiveCount: 0,
			want:           false,
		},
		{
			name:           "all silent",
			samples:        filled(100, 0),
			threshold:      50,
			minActiveCount: 3,
			want:           false,
		},
		{
			name:           "all loud",
			samples:        filled(10, 100),
			threshold:      50,
			minActiveCount: 3,
			want:           true,
		},
		{
			name:           "count equal to minimum is inactive",
			samples:        []int16{100, 100, 100, 0, 0},
			threshold:      50,
			minActiveCount: 3,
			want:           false,
		},
		{
			name:           "count one above minimum is active",
			samples:        []int16{100, 100, 100, 100, 0},
			threshold:      50,
			minActiveCount: 3,
			want:           true,
		},
		{
			name:           "samples equal to threshold do not count",
			samples:        filled(10, 50),
			threshold:      50,
			minActiveCount: 0,
			want:           false,
		},
		{
			name:           "negative excursions do not count",
			samples:        filled(10, -20000),
			threshold:      50,
			minActiveCount: 0,
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasSignal(tt.samples, tt.threshold, tt.minActiveCount))
		})
	}
}

func TestHasSignalMonotonic(t *testing.T) {
	samples := filled(64, 0)
	threshold := int16(1000)
	minActiveCount := 10

	previous := false
	for i := range samples {
		samples[i] = 2000
		got := HasSignal(samples, threshold, minActiveCount)
		if previous {
			assert.True(t, got, "adding loud sample %d flipped the result to false", i)
		}
		assert.Equal(t, i+1 > minActiveCount, got)
		previous = got
	}
}

func TestCountAbove(t *testing.T) {
	samples := []int16{-5, 0, 4000, 4001, 32767, -32768, 3999}
	assert.Equal(t, 2, CountAbove(samples, 4000))
	assert.Equal(t, 0, CountAbove(samples, 32767))
	assert.Equal(t, 6, CountAbove(samples, -32768))
}

func TestNewDetectorValidation(t *testing.T) {
	tests := []struct {
		name           string
		threshold      int16
		minActiveCount int
		expectErr      bool
	}{
		{name: "valid parameters", threshold: 4000, minActiveCount: 1000},
		{name: "zero values", threshold: 0, minActiveCount: 0},
		{name: "negative threshold", threshold: -1, minActiveCount: 1000, expectErr: true},
		{name: "negative minimum", threshold: 4000, minActiveCount: -1, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(tt.threshold, tt.minActiveCount)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.threshold, d.GetThreshold())
			assert.Equal(t, tt.minActiveCount, d.GetMinActiveCount())
		})
	}
}

func TestDetectorDetect(t *testing.T) {
	d, err := NewDetector(50, 3)
	require.NoError(t, err)

	loud := d.Detect(filled(10, 100))
	assert.True(t, loud.HasSignal)
	assert.Equal(t, 10, loud.ActiveCount)
	assert.Equal(t, 0, loud.WindowIndex)

	quiet := d.Detect(filled(10, 0))
	assert.False(t, quiet.HasSignal)
	assert.Equal(t, 0, quiet.ActiveCount)
	assert.Equal(t, 1, quiet.WindowIndex)
}

func TestDetectorStats(t *testing.T) {
	d, err := NewDetector(50, 3)
	require.NoError(t, err)

	stats := d.GetStats()
	assert.Zero(t, stats.TotalWindows)
	assert.Zero(t, stats.ActivePercentage)
	assert.True(t, stats.LastProcessed.IsZero())

	d.Detect(filled(10, 100))
	d.Detect(filled(10, 100))
	d.Detect(filled(10, 0))
	d.Detect(filled(10, 0))

	stats = d.GetStats()
	assert.Equal(t, uint64(4), stats.TotalWindows)
	assert.Equal(t, uint64(2), stats.ActiveWindows)
	assert.InDelta(t, 50.0, stats.ActivePercentage, 1e-9)
	assert.False(t, stats.LastProcessed.IsZero())

	d.Reset()
	stats = d.GetStats()
	assert.Zero(t, stats.TotalWindows)
	assert.Zero(t, stats.ActiveWindows)
}

func TestUpdateThreshold(t *testing.T) {
	d, err := NewDetector(50, 3)
	require.NoError(t, err)

	window := filled(10, 100)
	assert.True(t, d.Detect(window).HasSignal)

	require.NoError(t, d.UpdateThreshold(100))
	assert.Equal(t, int16(100), d.GetThreshold())
	assert.False(t, d.Detect(window).HasSignal)

	assert.Error(t, d.UpdateThreshold(-1))
	assert.Equal(t, int16(100), d.GetThreshold())
}

func TestConcurrentDetection(t *testing.T) {
	d, err := NewDetector(50, 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Detect(filled(16, 100))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = d.GetStats()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(500), d.GetStats().TotalWindows)
}
