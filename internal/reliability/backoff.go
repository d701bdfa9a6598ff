package reliability

import (
	"sync"
	"time"
)

// ReconnectDelay computes the wait before the next reconnect attempt. The
// delay grows by one second per failed connection cycle and is clamped to the
// configured maximum. Once the publisher has reached the ready state at least
// once, every subsequent reconnect is immediate. The publisher and subscriber
// sides share this policy.
type ReconnectDelay struct {
	mu      sync.Mutex
	step    time.Duration
	max     time.Duration
	current time.Duration
	ready   bool
}

// NewReconnectDelay creates a policy clamped to max. A zero max makes every
// reconnect immediate; that is a supported configuration, not an error.
func NewReconnectDelay(max time.Duration) *ReconnectDelay {
	return &ReconnectDelay{
		step: time.Second,
		max:  max,
	}
}

// Next advances and returns the delay for the upcoming attempt.
func (d *ReconnectDelay) Next() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ready {
		d.current = 0
		return d.current
	}

	d.current += d.step
	if d.current > d.max {
		d.current = d.max
	}
	return d.current
}

// MarkReady records that the ready state was reached. From now on Next
// returns zero.
func (d *ReconnectDelay) MarkReady() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ready = true
}

// Current returns the last computed delay.
func (d *ReconnectDelay) Current() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}
