package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWAV(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234, -4321}

	data, err := EncodeWAV(samples, 44100)
	require.NoError(t, err)
	assert.Len(t, data, 44+len(samples)*2)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(36+len(samples)*2), binary.LittleEndian.Uint32(data[4:8]))

	decoded, info, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, samples, decoded)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 16, info.BitsPerSample)
	assert.Equal(t, len(samples), info.NumSamples)
}

func TestEncodeWAVEmpty(t *testing.T) {
	data, err := EncodeWAV(nil, 8000)
	require.NoError(t, err)
	assert.Len(t, data, 44)

	decoded, info, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
	assert.Equal(t, time.Duration(0), info.Duration)
}

func TestEncodeWAVInvalidSampleRate(t *testing.T) {
	_, err := EncodeWAV([]int16{1, 2, 3}, 0)
	assert.Error(t, err)

	_, err = EncodeWAV([]int16{1, 2, 3}, -44100)
	assert.Error(t, err)
}

func TestWAVDuration(t *testing.T) {
	data, err := EncodeWAV(make([]int16, 22050), 44100)
	require.NoError(t, err)

	_, info, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, info.Duration)
}

func TestReadWAVSkipsUnknownChunks(t *testing.T) {
	samples := []int16{10, 20, 30}
	data, err := EncodeWAV(samples, 16000)
	require.NoError(t, err)

	// splice an odd-sized LIST chunk (plus pad byte) between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	var spliced bytes.Buffer
	spliced.Write(data[:36])
	spliced.Write(list)
	spliced.Write(data[36:])

	decoded, info, err := ReadWAV(&spliced)
	require.NoError(t, err)
	assert.Equal(t, samples, decoded)
	assert.Equal(t, 16000, info.SampleRate)
}

func TestReadWAVRejectsInvalidData(t *testing.T) {
	valid, err := EncodeWAV([]int16{1, 2, 3, 4}, 44100)
	require.NoError(t, err)

	stereo := bytes.Clone(valid)
	binary.LittleEndian.PutUint16(stereo[22:24], 2)

	eightBit := bytes.Clone(valid)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	float := bytes.Clone(valid)
	binary.LittleEndian.PutUint16(float[20:22], 3)

	noData := bytes.Clone(valid[:36])

	truncated := bytes.Clone(valid[:len(valid)-3])

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "too short", data: []byte("RIFF")},
		{name: "not riff", data: append([]byte("RIFX"), valid[4:]...)},
		{name: "stereo", data: stereo},
		{name: "8-bit", data: eightBit},
		{name: "float format", data: float},
		{name: "missing data chunk", data: noData},
		{name: "truncated samples", data: truncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeWAV(tt.data)
			assert.ErrorIs(t, err, ErrInvalidWAV)
		})
	}
}
