package stream

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"redundancy-analyzer/src/util"
)

const (
	DefaultMemoryThreshold = 512 << 20
	DefaultMemoryWait      = 30 * time.Second
	DefaultMemoryPoll      = 250 * time.Millisecond

	// usage must fall below this share of the threshold before work resumes
	releaseRatio = 0.8
)

// MemoryReader returns the current heap usage in bytes
type MemoryReader func() uint64

// HeapInUse reads the live heap size from the runtime
func HeapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// MemoryMonitor applies best-effort backpressure when heap usage is high
type MemoryMonitor struct {
	threshold uint64
	maxWait   time.Duration
	poll      time.Duration
	read      MemoryReader
	release   func()
}

// NewMemoryMonitor creates a monitor. Zero values fall back to defaults and a
// nil reader samples the runtime.
func NewMemoryMonitor(threshold uint64, maxWait, poll time.Duration, read MemoryReader) *MemoryMonitor {
	if threshold == 0 {
		threshold = DefaultMemoryThreshold
	}
	if maxWait <= 0 {
		maxWait = DefaultMemoryWait
	}
	if poll <= 0 {
		poll = DefaultMemoryPoll
	}
	if read == nil {
		read = HeapInUse
	}
	return &MemoryMonitor{
		threshold: threshold,
		maxWait:   maxWait,
		poll:      poll,
		read:      read,
		release:   debug.FreeOSMemory,
	}
}

// Threshold returns the configured limit in bytes
func (m *MemoryMonitor) Threshold() uint64 {
	return m.threshold
}

// Ratio returns current usage as a share of the threshold
func (m *MemoryMonitor) Ratio() float64 {
	return float64(m.read()) / float64(m.threshold)
}

// WaitForHeadroom blocks while usage is above the threshold, forcing
// collections, until usage drops below 80% of it or maxWait elapses. It
// reports whether it had to wait. Only context cancellation is an error.
func (m *MemoryMonitor) WaitForHeadroom(ctx context.Context) (bool, error) {
	usage := m.read()
	if usage <= m.threshold {
		return false, nil
	}

	util.Warn("Memory usage %d MB above threshold %d MB, pausing", usage>>20, m.threshold>>20)
	target := uint64(float64(m.threshold) * releaseRatio)
	deadline := time.NewTimer(m.maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		m.release()
		if usage = m.read(); usage < target {
			util.Debug("Memory usage back to %d MB, resuming", usage>>20)
			return true, nil
		}

		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-deadline.C:
			util.Warn("Memory usage still %d MB after %v, resuming anyway", usage>>20, m.maxWait)
			return true, nil
		case <-ticker.C:
		}
	}
}
