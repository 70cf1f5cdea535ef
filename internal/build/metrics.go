package build

import (
	"sync"
	"time"
)

// Outcome is the result of handling one declaration artifact.
type Outcome int

const (
	// OutcomeSkipped means nothing was written: the container had no
	// declaration to emit.
	OutcomeSkipped Outcome = iota
	// OutcomeEmitted means the artifact was written.
	OutcomeEmitted
	// OutcomeRemoved means the artifact was deleted.
	OutcomeRemoved
	// OutcomeFailed means errors were reported instead.
	OutcomeFailed
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeEmitted:
		return "emitted"
	case OutcomeRemoved:
		return "removed"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Metrics tracks artifact outcomes and emit time.
type Metrics struct {
	Emitted       int64
	Removed       int64
	Failed        int64
	Skipped       int64
	TotalDuration time.Duration
	mutex         sync.RWMutex
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record adds one outcome to the metrics.
func (m *Metrics) Record(outcome Outcome, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalDuration += duration
	switch outcome {
	case OutcomeEmitted:
		m.Emitted++
	case OutcomeRemoved:
		m.Removed++
	case OutcomeFailed:
		m.Failed++
	default:
		m.Skipped++
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return Summary{
		Emitted:  int(m.Emitted),
		Removed:  int(m.Removed),
		Failed:   int(m.Failed),
		Skipped:  int(m.Skipped),
		Duration: m.TotalDuration,
	}
}

// Summary is a point in time view of Metrics.
type Summary struct {
	Emitted  int
	Removed  int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Total returns the number of recorded outcomes.
func (s Summary) Total() int {
	return s.Emitted + s.Removed + s.Failed + s.Skipped
}
