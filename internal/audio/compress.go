package audio

import (
	"fmt"
	"math"
)

// Compressor speeds up a run of samples by a fixed ratio using
// nearest-sample decimation. It rewrites the run in place.
//
// In-place operation relies on ratio > 1: destination index k is always at
// or below source index round(k*ratio), so every read happens before the
// slot is overwritten. A ratio at or below 1 needs a separate destination.
type Compressor struct {
	ratio float64
}

// NewCompressor creates a compressor for the given ratio
func NewCompressor(ratio float64) (*Compressor, error) {
	if !(ratio > 1) || math.IsInf(ratio, 0) {
		return nil, fmt.Errorf("compression ratio must be a finite value greater than 1, got %f", ratio)
	}

	return &Compressor{ratio: ratio}, nil
}

// Ratio returns the compression ratio
func (c *Compressor) Ratio() float64 {
	return c.ratio
}

// ExpectedLength returns floor(n / ratio), the length Compress reports for an
// input of n samples
func (c *Compressor) ExpectedLength(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(float64(n) / c.ratio))
}

// Compress time-compresses samples in place and returns the new length.
// Samples beyond the returned length are stale. Index 0 is kept as is.
func (c *Compressor) Compress(samples []int16) int {
	n := len(samples)
	if n == 0 {
		return 0
	}

	last := n - 1
	for k := 1; ; k++ {
		source := float64(k) * c.ratio
		if source >= float64(n) {
			break
		}

		dest := roundHalfUp(source / c.ratio)
		src := roundHalfUp(source)
		if src > last {
			src = last
		}
		samples[dest] = samples[src]
	}

	return c.ExpectedLength(n)
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
