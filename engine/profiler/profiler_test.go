package profiler

import (
	"testing"
	"time"
)

func TestTickReturnsFalseBeforeInterval(t *testing.T) {
	p := NewProfiler()
	if p.Tick() {
		t.Fatal("Tick should not log on the very first call within the update interval")
	}
}

func TestTickLogsAfterIntervalElapsed(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = time.Millisecond
	time.Sleep(2 * time.Millisecond)
	if !p.Tick() {
		t.Fatal("Tick should log once the update interval has elapsed")
	}
}

func TestTickResetsFrameCountAfterLogging(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = time.Millisecond
	time.Sleep(2 * time.Millisecond)
	p.Tick()
	if p.frameCount != 0 {
		t.Fatalf("frameCount should reset to 0 after logging, got %d", p.frameCount)
	}
}
