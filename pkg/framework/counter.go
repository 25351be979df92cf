package framework

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CounterMode selects how a Counter fires.
type CounterMode int

const (
	// Periodic fires every Period until stopped.
	Periodic CounterMode = iota
	// OneShot fires once after Period and stops itself.
	OneShot
)

// ErrInvalidPeriod is returned by Counter.Run for a non-positive Period.
var ErrInvalidPeriod = errors.New("counter period must be positive")

// CounterFunc is invoked with the counter ID each time a Counter fires.
type CounterFunc func(id int)

// Counter is a software real-time counter. It stays idle until Start is
// called and can be stopped and restarted any number of times while Run
// is active. Callbacks are invoked from the Run goroutine.
type Counter struct {
	ID       int
	Period   time.Duration
	Mode     CounterMode
	Callback CounterFunc

	lock    sync.Mutex
	running bool
	ticks   uint64
	wakeCh  chan struct{}
}

// NewCounter creates a stopped Counter.
func NewCounter(id int, period time.Duration, mode CounterMode, cb CounterFunc) *Counter {
	return &Counter{
		ID:       id,
		Period:   period,
		Mode:     mode,
		Callback: cb,
		wakeCh:   make(chan struct{}, 1),
	}
}

// Start arms the counter. The first callback happens one Period later.
func (c *Counter) Start() {
	c.setRunning(true)
}

// Stop disarms the counter. A pending period is discarded.
func (c *Counter) Stop() {
	c.setRunning(false)
}

// Running tells whether the counter is armed.
func (c *Counter) Running() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.running
}

// Ticks returns how many times the counter fired.
func (c *Counter) Ticks() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ticks
}

func (c *Counter) setRunning(running bool) {
	c.lock.Lock()
	c.running = running
	if c.wakeCh == nil {
		c.wakeCh = make(chan struct{}, 1)
	}
	wakeCh := c.wakeCh
	c.lock.Unlock()
	select {
	case wakeCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (c *Counter) Run(ctx context.Context) error {
	if c.Period <= 0 {
		return ErrInvalidPeriod
	}
	c.lock.Lock()
	if c.wakeCh == nil {
		c.wakeCh = make(chan struct{}, 1)
	}
	wakeCh := c.wakeCh
	c.lock.Unlock()

	for {
		if !c.Running() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wakeCh:
			}
			continue
		}
		timer := time.NewTimer(c.Period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-wakeCh:
			// Start or Stop was called; restart the period.
			timer.Stop()
		case <-timer.C:
			c.fire()
		}
	}
}

func (c *Counter) fire() {
	c.lock.Lock()
	if !c.running {
		c.lock.Unlock()
		return
	}
	c.ticks++
	if c.Mode == OneShot {
		c.running = false
	}
	cb := c.Callback
	c.lock.Unlock()
	if cb != nil {
		cb(c.ID)
	}
}
