package monitoring

import (
	"sync"
	"testing"
)

func TestMonitor_Snapshot(t *testing.T) {
	m := NewMonitor()
	m.RecordEvent("order.created")
	m.RecordEvent("order.created")

	snapshot := m.Snapshot()

	events, ok := snapshot["events"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected 'events' to be a map, got %T", snapshot["events"])
	}
	created, ok := events["order.created"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected 'order.created' to be present in events, but it was not")
	}
	if created["count"] != int64(2) {
		t.Errorf("Expected 'order.created' count to be 2, but got %v", created["count"])
	}
	if _, exists := snapshot["uptime_seconds"]; !exists {
		t.Errorf("Expected 'uptime_seconds' to be present in snapshot, but it was not")
	}
}

func TestMonitor_ConcurrentRecord(t *testing.T) {
	m := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordEvent("login")
		}()
	}
	wg.Wait()

	if got := m.count("login"); got != 50 {
		t.Errorf("count(\"login\") = %d, want 50", got)
	}
}
