// Package debounce coalesces bursts of calls per key into one delayed call.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
}

// Debouncer runs the last function scheduled for a key once no new call
// arrives for the configured delay.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*pending
	wg      sync.WaitGroup
	closed  bool
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pending),
	}
}

// Schedule cancels any pending call for key and schedules fn in its place.
// It returns false once the debouncer is closed.
func (d *Debouncer) Schedule(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}

	if p, ok := d.pending[key]; ok {
		if p.timer.Stop() {
			p.fn = fn
			p.timer.Reset(d.delay)
			return true
		}
		// already fired, schedule a fresh call
	}

	p := &pending{fn: fn}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() { d.fire(key, p) })
	d.pending[key] = p
	return true
}

func (d *Debouncer) fire(key string, p *pending) {
	defer d.wg.Done()

	d.mu.Lock()
	if d.pending[key] == p {
		delete(d.pending, key)
	}
	fn := p.fn
	d.mu.Unlock()

	fn()
}

// Pending returns the number of keys waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush runs every pending call now and waits for in-flight ones.
// The debouncer accepts no new calls afterwards.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.closed = true
	toRun := make([]*pending, 0, len(d.pending))
	for key, p := range d.pending {
		if p.timer.Stop() {
			toRun = append(toRun, p)
			delete(d.pending, key)
		}
	}
	d.mu.Unlock()

	for _, p := range toRun {
		p.fn()
		d.wg.Done()
	}
	d.wg.Wait()
}
