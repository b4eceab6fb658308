package echo

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoetbi/chatterdog/internal/device/mock"
	"github.com/schoetbi/chatterdog/internal/metrics"
)

func TestNewPlayerValidation(t *testing.T) {
	_, err := NewPlayer(nil, 1, nil, nil)
	assert.Error(t, err)

	_, err = NewPlayer(&mock.Sink{}, -1, nil, nil)
	assert.Error(t, err)
}

func TestPlayerRetries(t *testing.T) {
	samples := []int16{1, 2, 3}

	tests := []struct {
		name       string
		retries    int
		failWrites int
		wantErr    bool
		wantWrites int
		wantResets int
	}{
		{name: "first attempt succeeds", retries: 1, failWrites: 0, wantWrites: 1},
		{name: "retry succeeds", retries: 1, failWrites: 1, wantWrites: 2, wantResets: 1},
		{name: "both attempts fail", retries: 1, failWrites: 2, wantErr: true, wantWrites: 2, wantResets: 1},
		{name: "no retries", retries: 0, failWrites: 1, wantErr: true, wantWrites: 1},
		{name: "three retries", retries: 3, failWrites: 3, wantWrites: 4, wantResets: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &mock.Sink{FailWrites: tt.failWrites}
			m := metrics.NewMetrics(prometheus.NewRegistry())

			player, err := NewPlayer(sink, tt.retries, nil, m)
			require.NoError(t, err)

			err = player.Play(samples)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPlaybackFailed)
				assert.Equal(t, 1.0, testutil.ToFloat64(m.PlaybackFailures))
			} else {
				require.NoError(t, err)
				assert.Equal(t, [][]int16{samples}, sink.Writes())
			}

			assert.Equal(t, tt.wantWrites, sink.CallCountWrite)
			assert.Equal(t, tt.wantResets, sink.CallCountReset)
			assert.Equal(t, float64(tt.wantWrites), testutil.ToFloat64(m.PlaybackAttempts))
		})
	}
}

func TestPlayerResetFailureStillRetries(t *testing.T) {
	sink := &mock.Sink{FailWrites: 1, ResetError: errors.New("device busy")}

	player, err := NewPlayer(sink, 1, nil, nil)
	require.NoError(t, err)

	require.NoError(t, player.Play([]int16{5, 6}))
	assert.Equal(t, 2, sink.CallCountWrite)
}

func TestPlayerKeepsDeviceError(t *testing.T) {
	deviceErr := errors.New("underrun")
	sink := &mock.Sink{FailWrites: 2, WriteError: deviceErr}

	player, err := NewPlayer(sink, 1, nil, nil)
	require.NoError(t, err)

	err = player.Play([]int16{1})
	assert.ErrorIs(t, err, ErrPlaybackFailed)
	assert.ErrorIs(t, err, deviceErr)
}
