package pipeline

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of RunMetrics.
type MetricsSnapshot struct {
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AverageTime    time.Duration
	TotalTime      time.Duration
	LastBuildID    string
	LastStageTimes map[string]time.Duration
}

// RunMetrics tracks sequence runs.
type RunMetrics struct {
	snapshot MetricsSnapshot
	mutex    sync.RWMutex
}

// NewRunMetrics creates a metrics tracker.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{}
}

// RecordRun records one finished run.
func (m *RunMetrics) RecordRun(buildID string, duration time.Duration, stages map[string]time.Duration, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := &m.snapshot
	s.TotalRuns++
	s.TotalTime += duration
	if err != nil {
		s.FailedRuns++
	} else {
		s.SuccessfulRuns++
	}
	s.AverageTime = s.TotalTime / time.Duration(s.TotalRuns)
	s.LastBuildID = buildID
	s.LastStageTimes = stages
}

// Snapshot returns a copy of the current metrics.
func (m *RunMetrics) Snapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := m.snapshot
	out.LastStageTimes = make(map[string]time.Duration, len(m.snapshot.LastStageTimes))
	for k, v := range m.snapshot.LastStageTimes {
		out.LastStageTimes[k] = v
	}
	return out
}
