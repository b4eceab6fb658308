package vad

import (
	"fmt"
	"sync"
	"time"
)

// Detector counts level crossings over windows of samples
type Detector struct {
	threshold      int16
	minActiveCount int

	// Statistics
	totalWindows  uint64
	activeWindows uint64
	lastProcessed time.Time

	mu sync.RWMutex
}

// Result represents the outcome of evaluating one window
type Result struct {
	ActiveCount    int           `json:"active_count"`    // Samples strictly above threshold
	HasSignal      bool          `json:"has_signal"`      // Whether the window is active
	WindowIndex    int           `json:"window_index"`    // Window index processed
	ProcessingTime time.Duration `json:"processing_time"` // Time taken to process
}

// DetectorStats represents detector statistics
type DetectorStats struct {
	Threshold        int16     `json:"threshold"`
	MinActiveCount   int       `json:"min_active_count"`
	TotalWindows     uint64    `json:"total_windows"`
	ActiveWindows    uint64    `json:"active_windows"`
	ActivePercentage float64   `json:"active_percentage"`
	LastProcessed    time.Time `json:"last_processed"`
}

// CountAbove returns the number of samples strictly greater than threshold
func CountAbove(samples []int16, threshold int16) int {
	count := 0
	for _, s := range samples {
		if s > threshold {
			count++
		}
	}
	return count
}

// HasSignal reports whether more than minActiveCount samples lie strictly
// above threshold. Empty windows are never active.
func HasSignal(samples []int16, threshold int16, minActiveCount int) bool {
	return CountAbove(samples, threshold) > minActiveCount
}

// NewDetector creates a new detector
func NewDetector(threshold int16, minActiveCount int) (*Detector, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("threshold cannot be negative, got %d", threshold)
	}

	if minActiveCount < 0 {
		return nil, fmt.Errorf("min active count cannot be negative, got %d", minActiveCount)
	}

	return &Detector{
		threshold:      threshold,
		minActiveCount: minActiveCount,
	}, nil
}

// Detect evaluates one window and records it in the statistics
func (d *Detector) Detect(samples []int16) Result {
	startTime := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	count := CountAbove(samples, d.threshold)
	active := count > d.minActiveCount

	d.totalWindows++
	if active {
		d.activeWindows++
	}
	d.lastProcessed = time.Now()

	return Result{
		ActiveCount:    count,
		HasSignal:      active,
		WindowIndex:    int(d.totalWindows - 1),
		ProcessingTime: time.Since(startTime),
	}
}

// GetStats returns current detector statistics
func (d *Detector) GetStats() DetectorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	activePercentage := float64(0)
	if d.totalWindows > 0 {
		activePercentage = float64(d.activeWindows) / float64(d.totalWindows) * 100
	}

	return DetectorStats{
		Threshold:        d.threshold,
		MinActiveCount:   d.minActiveCount,
		TotalWindows:     d.totalWindows,
		ActiveWindows:    d.activeWindows,
		ActivePercentage: activePercentage,
		LastProcessed:    d.lastProcessed,
	}
}

// UpdateThreshold updates the amplitude threshold
func (d *Detector) UpdateThreshold(threshold int16) error {
	if threshold < 0 {
		return fmt.Errorf("threshold cannot be negative, got %d", threshold)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.threshold = threshold
	return nil
}

// Reset clears the statistics
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalWindows = 0
	d.activeWindows = 0
	d.lastProcessed = time.Time{}
}

// GetThreshold returns the current amplitude threshold
func (d *Detector) GetThreshold() int16 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// GetMinActiveCount returns the minimum count of loud samples
func (d *Detector) GetMinActiveCount() int {
	return d.minActiveCount
}
