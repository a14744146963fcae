// Package clock abstracts the timers behind playback and input debouncing so
// they can be driven by hand in tests.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	// Every calls f every d until stop is called.
	Every(d time.Duration, f func()) (stop func())
	// AfterFunc calls f once after d unless stopped first.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type System struct{}

func (System) Every(d time.Duration, f func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f()
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

func (System) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Fake never fires on its own; tests call Tick and FireTimers.
type Fake struct {
	mu      sync.Mutex
	nextID  int
	tickers map[int]func()
	timers  map[int]func()
}

func NewFake() *Fake {
	return &Fake{tickers: map[int]func(){}, timers: map[int]func(){}}
}

func (c *Fake) Every(_ time.Duration, f func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.tickers[id] = f
	return func() {
		c.mu.Lock()
		delete(c.tickers, id)
		c.mu.Unlock()
	}
}

func (c *Fake) AfterFunc(_ time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.timers[id] = f
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, pending := c.timers[id]
		delete(c.timers, id)
		return pending
	}
}

// Tick fires every running ticker once and returns how many fired.
func (c *Fake) Tick() int {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.tickers))
	for _, f := range c.tickers {
		fns = append(fns, f)
	}
	c.mu.Unlock()
	for _, f := range fns {
		f()
	}
	return len(fns)
}

// FireTimers runs and clears every pending one-shot timer.
func (c *Fake) FireTimers() int {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.timers))
	for id, f := range c.timers {
		fns = append(fns, f)
		delete(c.timers, id)
	}
	c.mu.Unlock()
	for _, f := range fns {
		f()
	}
	return len(fns)
}

func (c *Fake) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *Fake) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
