package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSystem_EveryStops(t *testing.T) {
	var n atomic.Int32
	stop := System{}.Every(5*time.Millisecond, func() { n.Add(1) })

	deadline := time.Now().Add(time.Second)
	for n.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stop()
	stop() // idempotent

	if n.Load() < 2 {
		t.Fatalf("ticker fired %d times; want >= 2", n.Load())
	}
	time.Sleep(20 * time.Millisecond)
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	if n.Load() != after {
		t.Errorf("ticker kept firing after stop: %d -> %d", after, n.Load())
	}
}

func TestFake(t *testing.T) {
	c := NewFake()
	var ticks, fired int
	stop := c.Every(time.Second, func() { ticks++ })
	cancel := c.AfterFunc(time.Second, func() { fired++ })
	c.AfterFunc(time.Second, func() { fired++ })

	c.Tick()
	c.Tick()
	if ticks != 2 {
		t.Errorf("ticks = %d; want 2", ticks)
	}
	if !cancel() {
		t.Error("cancel() = false; want true for a pending timer")
	}
	if n := c.FireTimers(); n != 1 || fired != 1 {
		t.Errorf("FireTimers() = %d, fired = %d; want 1, 1", n, fired)
	}

	stop()
	if c.Tick() != 0 || c.Tickers() != 0 {
		t.Error("stopped ticker still registered")
	}
}
