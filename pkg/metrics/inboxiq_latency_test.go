package metrics

import (
	"testing"
	"time"
)

func TestLatencyTrackerStats(t *testing.T) {
	lt := NewLatencyTracker(100)
	for i := 1; i <= 100; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	stats := lt.Stats()
	if stats.Count != 100 {
		t.Errorf("expected 100 samples, got %d", stats.Count)
	}
	if stats.Min != time.Millisecond {
		t.Errorf("expected min 1ms, got %v", stats.Min)
	}
	if stats.Max != 100*time.Millisecond {
		t.Errorf("expected max 100ms, got %v", stats.Max)
	}
	if stats.P50 != 50*time.Millisecond {
		t.Errorf("expected p50 50ms, got %v", stats.P50)
	}
	if stats.P99 != 99*time.Millisecond {
		t.Errorf("expected p99 99ms, got %v", stats.P99)
	}
}

func TestLatencyTrackerWindow(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 0; i < 10; i++ {
		lt.Record(time.Second)
	}
	lt.Record(time.Millisecond)

	stats := lt.Stats()
	if stats.Count != 10 {
		t.Errorf("expected window of 10, got %d", stats.Count)
	}
	if stats.Min != time.Millisecond {
		t.Errorf("expected newest sample kept, got min %v", stats.Min)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	stats := NewLatencyTracker(0).Stats()
	if stats.Count != 0 {
		t.Errorf("expected no samples, got %d", stats.Count)
	}
}

func TestLatencyRegistry(t *testing.T) {
	r := NewLatencyRegistry(10)
	r.Record("POST /api/v1/chat/messages", 20*time.Millisecond)
	r.Record("POST /api/v1/chat/messages", 40*time.Millisecond)
	r.Record("GET /health", time.Millisecond)

	all := r.AllStats()
	if len(all) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(all))
	}
	chat := all["POST /api/v1/chat/messages"]
	if chat.Avg != 30*time.Millisecond {
		t.Errorf("expected avg 30ms, got %v", chat.Avg)
	}
	if got := chat.ToMap()["avg_ms"]; got != 30.0 {
		t.Errorf("expected avg_ms 30, got %v", got)
	}
}
