package monitoring

import (
	"sync"
	"time"
)

// Monitor keeps a small in-process snapshot of service activity for the
// health endpoint
type Monitor struct {
	counts    map[string]int64
	lastSeen  map[string]time.Time
	mu        sync.RWMutex
	startTime time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	return &Monitor{
		counts:    make(map[string]int64),
		lastSeen:  make(map[string]time.Time),
		startTime: time.Now(),
	}
}

// RecordEvent counts one occurrence of the named event
func (m *Monitor) RecordEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	m.lastSeen[name] = time.Now()
}

// count returns how many times the named event was recorded
func (m *Monitor) count(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[name]
}

// Snapshot returns the event counts, the time each was last seen and uptime
func (m *Monitor) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make(map[string]interface{}, len(m.counts))
	for name, n := range m.counts {
		events[name] = map[string]interface{}{
			"count":     n,
			"last_seen": m.lastSeen[name].UTC().Format(time.RFC3339),
		}
	}

	return map[string]interface{}{
		"events":         events,
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}
