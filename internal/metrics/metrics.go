// Package metrics provides lock-free in-process counters for the identity
// layer. Counters are plain atomics: incrementing is wait-free and reading a
// snapshot never blocks writers.
package metrics

import "sync/atomic"

// MetricID identifies one counter.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricLockoutTriggered
	MetricLockoutCounterReset
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionPurged
	MetricUserCreated
	MetricPasswordChanged
	MetricLogout
	MetricStoreFailure

	MetricIDCount
)

// Config controls whether counting is active. Disabled metrics are no-ops.
type Config struct {
	Enabled bool
}

// Metrics holds the counter array. The zero value is unusable; construct
// through [New].
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// New returns a Metrics instance per cfg.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter. Unknown ids and disabled metrics are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot deep-copies the counters. Concurrent increments during the copy
// may land on either side; each individual read is atomic.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
